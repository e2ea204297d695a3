package model

import (
	"time"

	"github.com/google/uuid"
)

// UsedPart is one priced line item of a work report. UnitPrice and
// TotalPrice are filled in by the costing module, never taken from input.
type UsedPart struct {
	ProductID   uuid.UUID `db:"product_id" json:"product_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	TotalPrice  float64   `db:"total_price" json:"total_price"`
}

// WorkReport is the master's record of what was actually done, attached
// 1:1 to an appointment. TotalCost is derived: parts total plus
// additional costs. Labor time is recorded but not priced.
type WorkReport struct {
	AppointmentID   uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Description     string     `db:"description" json:"description"`
	UsedParts       []UsedPart `db:"-" json:"used_parts"`
	LaborMinutes    int        `db:"labor_minutes" json:"labor_minutes"`
	AdditionalCosts float64    `db:"additional_costs" json:"additional_costs"`
	Recommendations string     `db:"recommendations" json:"recommendations,omitempty"`
	PartsTotal      float64    `db:"parts_total" json:"parts_total"`
	TotalCost       float64    `db:"total_cost" json:"total_cost"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

type UsedPartInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

type WorkReportRequest struct {
	Description     string          `json:"description" binding:"required,max=4000"`
	UsedParts       []UsedPartInput `json:"used_parts"`
	LaborMinutes    int             `json:"labor_minutes" binding:"required"`
	AdditionalCosts float64         `json:"additional_costs"`
	Recommendations string          `json:"recommendations" binding:"max=2000"`
}
