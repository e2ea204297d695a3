package model

import "github.com/google/uuid"

// ProductPrice is what the catalog price resolver returns for a part.
// The engine only reads prices; stock is never mutated here.
type ProductPrice struct {
	ProductID uuid.UUID `db:"id" json:"product_id"`
	Name      string    `db:"name" json:"name"`
	UnitPrice float64   `db:"price" json:"unit_price"`
	Available bool      `db:"is_active" json:"available"`
}

// ServiceRef is the catalog view of a bookable service.
type ServiceRef struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	IsActive bool      `db:"is_active" json:"is_active"`
}

// ServiceStationRef is the catalog view of a service station.
type ServiceStationRef struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	IsActive bool      `db:"is_active" json:"is_active"`
}

// MasterRef is the identity provider's view of a technician, used to
// validate assignment targets.
type MasterRef struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Role Role      `db:"role" json:"role"`
}
