package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types written by the workflow engine.
const (
	EventAppointmentCreated    = "APPOINTMENT_CREATED"
	EventAppointmentTransition = "APPOINTMENT_TRANSITION"
	EventMasterAssigned        = "MASTER_ASSIGNED"
	EventWorkReportSaved       = "WORK_REPORT_SAVED"
	EventLoyaltyAccrual        = "LOYALTY_ACCRUAL"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// TransitionEvent is the payload recorded for every committed status
// change. Collaborators (notification service, loyalty accrual) consume
// it from the broker; dispatch failures never roll back the transition.
type TransitionEvent struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	FromStatus    AppointmentStatus `json:"from_status"`
	ToStatus      AppointmentStatus `json:"to_status"`
	ActorID       uuid.UUID         `json:"actor_id"`
	ClientID      uuid.UUID         `json:"client_id"`
	MasterID      *uuid.UUID        `json:"master_id,omitempty"`
	TotalCost     float64           `json:"total_cost"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// LoyaltyAccrualEvent is emitted exactly once per completion.
type LoyaltyAccrualEvent struct {
	ClientID      uuid.UUID `json:"client_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	TotalCost     float64   `json:"total_cost"`
	OccurredAt    time.Time `json:"occurred_at"`
}
