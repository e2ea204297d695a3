package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saqreed/super-sto-sub000/internal/model"
)

// AppointmentRepository is the canonical store for appointments and
// work reports. Status-changing methods are compare-and-swap on the
// caller's observed status and write the outbox event in the same
// transaction, so no two conflicting transitions can both commit.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)

	// AssignMaster sets master_id/assigned_by iff status still equals
	// expectedStatus. Returns a conflict error when the row moved on.
	AssignMaster(ctx context.Context, id, masterID, assignedBy uuid.UUID, expectedStatus model.AppointmentStatus, event *model.OutboxEvent) error

	// TransitionStatus swaps status from -> to iff the row still holds
	// from, recording the transition events atomically.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, events []*model.OutboxEvent) error

	// ReplaceWorkReport wholesale-replaces the report iff the
	// appointment status is one of allowedStatuses.
	ReplaceWorkReport(ctx context.Context, report *model.WorkReport, allowedStatuses []model.AppointmentStatus, event *model.OutboxEvent) error
	GetWorkReport(ctx context.Context, appointmentID uuid.UUID) (*model.WorkReport, error)
}

// CatalogRepository is the read-only view of the external catalog:
// part prices, bookable services, stations. Stock is never mutated here.
type CatalogRepository interface {
	GetProductPrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error)
	GetService(ctx context.Context, id uuid.UUID) (*model.ServiceRef, error)
	GetServiceStation(ctx context.Context, id uuid.UUID) (*model.ServiceStationRef, error)
	GetMaster(ctx context.Context, id uuid.UUID) (*model.MasterRef, error)
}

// OutboxRepository drains the side-effect queue.
type OutboxRepository interface {
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
