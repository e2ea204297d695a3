package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatus(t *testing.T) {
	for _, s := range []AppointmentStatus{
		AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled,
	} {
		assert.True(t, s.Valid())
	}
	assert.False(t, AppointmentStatus("ARCHIVED").Valid())
	assert.False(t, AppointmentStatus("").Valid())

	assert.True(t, AppointmentStatusCompleted.Terminal())
	assert.True(t, AppointmentStatusCancelled.Terminal())
	assert.False(t, AppointmentStatusInProgress.Terminal())
}

func TestAppointmentAssignment(t *testing.T) {
	appt := &Appointment{}
	assert.False(t, appt.HasMaster())
	assert.False(t, appt.AssignedTo(uuid.New()))

	masterID := uuid.New()
	appt.MasterID = &masterID
	assert.True(t, appt.HasMaster())
	assert.True(t, appt.AssignedTo(masterID))
	assert.False(t, appt.AssignedTo(uuid.New()))
}
