package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending    AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentStatusInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled  AppointmentStatus = "CANCELLED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment is a scheduled unit of service work tying a client, a
// service, a station, and (once assigned) a master. Status is mutated
// exclusively through the workflow engine; rows are never deleted here.
type Appointment struct {
	Base
	ClientID         uuid.UUID         `db:"client_id" json:"client_id"`
	MasterID         *uuid.UUID        `db:"master_id" json:"master_id,omitempty"`
	AssignedBy       *uuid.UUID        `db:"assigned_by" json:"assigned_by,omitempty"`
	ServiceID        uuid.UUID         `db:"service_id" json:"service_id"`
	ServiceStationID uuid.UUID         `db:"service_station_id" json:"service_station_id"`
	ScheduledAt      time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Status           AppointmentStatus `db:"status" json:"status"`
	Notes            string            `db:"notes" json:"notes,omitempty"`
	WorkReport       *WorkReport       `db:"-" json:"work_report,omitempty"`
}

// HasMaster reports whether a master has been assigned.
func (a *Appointment) HasMaster() bool {
	return a.MasterID != nil && *a.MasterID != uuid.Nil
}

// AssignedTo reports whether the appointment is assigned to the given master.
func (a *Appointment) AssignedTo(masterID uuid.UUID) bool {
	return a.MasterID != nil && *a.MasterID == masterID
}

type CreateAppointmentRequest struct {
	ServiceID        uuid.UUID `json:"service_id" binding:"required"`
	ServiceStationID uuid.UUID `json:"service_station_id" binding:"required"`
	ScheduledAt      time.Time `json:"scheduled_at" binding:"required"`
	Notes            string    `json:"notes" binding:"max=1000"`
}

type AssignMasterRequest struct {
	MasterID uuid.UUID `json:"master_id" binding:"required"`
}

type TransitionRequest struct {
	TargetStatus AppointmentStatus `json:"target_status" binding:"required,appointmentstatus"`
}

type AppointmentFilters struct {
	ClientID  uuid.UUID
	MasterID  uuid.UUID
	Status    AppointmentStatus
	StationID uuid.UUID
	DateFrom  time.Time
	DateTo    time.Time
}
