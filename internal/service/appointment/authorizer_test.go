package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
)

var (
	clientID = uuid.New()
	masterID = uuid.New()
	adminID  = uuid.New()
)

func testAppointment(status model.AppointmentStatus, withMaster bool) *model.Appointment {
	appt := &model.Appointment{
		ClientID: clientID,
		Status:   status,
	}
	appt.ID = uuid.New()
	if withMaster {
		m := masterID
		appt.MasterID = &m
	}
	return appt
}

func denialReason(t *testing.T, err error) apperror.Reason {
	t.Helper()
	require.Error(t, err)
	appErr := apperror.As(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	require.Equal(t, apperror.CodeAuthorization, appErr.Code)
	return appErr.Reason
}

func TestAuthorizeTransition_AllowedPairs(t *testing.T) {
	admin := model.Actor{ID: adminID, Role: model.RoleAdmin}
	client := model.Actor{ID: clientID, Role: model.RoleClient}
	master := model.Actor{ID: masterID, Role: model.RoleMaster}

	cases := []struct {
		name   string
		actor  model.Actor
		appt   *model.Appointment
		target model.AppointmentStatus
	}{
		{"admin confirms pending", admin, testAppointment(model.AppointmentStatusPending, false), model.AppointmentStatusConfirmed},
		{"admin cancels pending", admin, testAppointment(model.AppointmentStatusPending, false), model.AppointmentStatusCancelled},
		{"client cancels own pending", client, testAppointment(model.AppointmentStatusPending, false), model.AppointmentStatusCancelled},
		{"assigned master starts work", master, testAppointment(model.AppointmentStatusConfirmed, true), model.AppointmentStatusInProgress},
		{"assigned master completes", master, testAppointment(model.AppointmentStatusInProgress, true), model.AppointmentStatusCompleted},
		{"assigned master cancels in progress", master, testAppointment(model.AppointmentStatusInProgress, true), model.AppointmentStatusCancelled},
		{"admin cancels in progress", admin, testAppointment(model.AppointmentStatusInProgress, true), model.AppointmentStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, AuthorizeTransition(tc.actor, tc.appt, tc.target))
		})
	}
}

// Every (role, current, target) triple outside the transition table must
// be denied.
func TestAuthorizeTransition_DeniesEverythingOutsideTable(t *testing.T) {
	statuses := []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusInProgress,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
	}
	actors := []model.Actor{
		{ID: clientID, Role: model.RoleClient},
		{ID: masterID, Role: model.RoleMaster},
		{ID: adminID, Role: model.RoleAdmin},
	}

	allowed := map[string]bool{
		"ADMIN:PENDING:CONFIRMED":      true,
		"ADMIN:PENDING:CANCELLED":      true,
		"CLIENT:PENDING:CANCELLED":     true,
		"MASTER:CONFIRMED:IN_PROGRESS": true,
		"MASTER:IN_PROGRESS:COMPLETED": true,
		"MASTER:IN_PROGRESS:CANCELLED": true,
		"ADMIN:IN_PROGRESS:CANCELLED":  true,
	}

	for _, actor := range actors {
		for _, from := range statuses {
			for _, to := range statuses {
				key := string(actor.Role) + ":" + string(from) + ":" + string(to)
				if allowed[key] {
					continue
				}
				appt := testAppointment(from, true)
				err := AuthorizeTransition(actor, appt, to)
				assert.Error(t, err, "expected denial for %s", key)
			}
		}
	}
}

func TestAuthorizeTransition_TerminalStates(t *testing.T) {
	actors := []model.Actor{
		{ID: clientID, Role: model.RoleClient},
		{ID: masterID, Role: model.RoleMaster},
		{ID: adminID, Role: model.RoleAdmin},
	}
	for _, terminal := range []model.AppointmentStatus{model.AppointmentStatusCompleted, model.AppointmentStatusCancelled} {
		for _, actor := range actors {
			appt := testAppointment(terminal, true)
			err := AuthorizeTransition(actor, appt, model.AppointmentStatusPending)
			assert.Equal(t, apperror.ReasonTerminalState, denialReason(t, err))
		}
	}
}

func TestAuthorizeTransition_ClientCannotCancelOthersAppointment(t *testing.T) {
	stranger := model.Actor{ID: uuid.New(), Role: model.RoleClient}
	appt := testAppointment(model.AppointmentStatusPending, false)

	err := AuthorizeTransition(stranger, appt, model.AppointmentStatusCancelled)
	assert.Equal(t, apperror.ReasonNotOwner, denialReason(t, err))
}

func TestAuthorizeTransition_ClientCannotCancelConfirmed(t *testing.T) {
	client := model.Actor{ID: clientID, Role: model.RoleClient}
	appt := testAppointment(model.AppointmentStatusConfirmed, true)

	err := AuthorizeTransition(client, appt, model.AppointmentStatusCancelled)
	assert.Equal(t, apperror.ReasonWrongRole, denialReason(t, err))
}

func TestAuthorizeTransition_UnassignedMasterDenied(t *testing.T) {
	other := model.Actor{ID: uuid.New(), Role: model.RoleMaster}
	appt := testAppointment(model.AppointmentStatusInProgress, true)

	err := AuthorizeTransition(other, appt, model.AppointmentStatusCompleted)
	assert.Equal(t, apperror.ReasonNotAssigned, denialReason(t, err))
}

func TestAuthorizeTransition_StartRequiresMaster(t *testing.T) {
	// A confirmed appointment without a master cannot move to
	// IN_PROGRESS for anyone.
	master := model.Actor{ID: masterID, Role: model.RoleMaster}
	appt := testAppointment(model.AppointmentStatusConfirmed, false)

	err := AuthorizeTransition(master, appt, model.AppointmentStatusInProgress)
	assert.Equal(t, apperror.ReasonNotAssigned, denialReason(t, err))
}

func TestAuthorizeAssignMaster(t *testing.T) {
	admin := model.Actor{ID: adminID, Role: model.RoleAdmin}
	master := model.Actor{ID: masterID, Role: model.RoleMaster}
	client := model.Actor{ID: clientID, Role: model.RoleClient}

	assert.NoError(t, AuthorizeAssignMaster(admin, testAppointment(model.AppointmentStatusPending, false)))
	assert.NoError(t, AuthorizeAssignMaster(admin, testAppointment(model.AppointmentStatusConfirmed, true)))

	err := AuthorizeAssignMaster(master, testAppointment(model.AppointmentStatusPending, false))
	assert.Equal(t, apperror.ReasonWrongRole, denialReason(t, err))

	err = AuthorizeAssignMaster(client, testAppointment(model.AppointmentStatusPending, false))
	assert.Equal(t, apperror.ReasonWrongRole, denialReason(t, err))

	err = AuthorizeAssignMaster(admin, testAppointment(model.AppointmentStatusInProgress, true))
	assert.Equal(t, apperror.ReasonInvalidTransition, denialReason(t, err))

	err = AuthorizeAssignMaster(admin, testAppointment(model.AppointmentStatusCompleted, true))
	assert.Equal(t, apperror.ReasonTerminalState, denialReason(t, err))
}

func TestAuthorizeWorkReport(t *testing.T) {
	admin := model.Actor{ID: adminID, Role: model.RoleAdmin}
	assigned := model.Actor{ID: masterID, Role: model.RoleMaster}
	otherMaster := model.Actor{ID: uuid.New(), Role: model.RoleMaster}
	client := model.Actor{ID: clientID, Role: model.RoleClient}

	appt := testAppointment(model.AppointmentStatusInProgress, true)

	assert.NoError(t, AuthorizeWorkReport(assigned, appt))
	assert.NoError(t, AuthorizeWorkReport(admin, appt))

	err := AuthorizeWorkReport(otherMaster, appt)
	assert.Equal(t, apperror.ReasonNotAssigned, denialReason(t, err))

	err = AuthorizeWorkReport(client, appt)
	assert.Equal(t, apperror.ReasonWrongRole, denialReason(t, err))
}

func TestCanReadAppointment(t *testing.T) {
	appt := testAppointment(model.AppointmentStatusPending, true)

	assert.True(t, CanReadAppointment(model.Actor{ID: adminID, Role: model.RoleAdmin}, appt))
	assert.True(t, CanReadAppointment(model.Actor{ID: clientID, Role: model.RoleClient}, appt))
	assert.True(t, CanReadAppointment(model.Actor{ID: masterID, Role: model.RoleMaster}, appt))
	assert.False(t, CanReadAppointment(model.Actor{ID: uuid.New(), Role: model.RoleClient}, appt))
	assert.False(t, CanReadAppointment(model.Actor{ID: uuid.New(), Role: model.RoleMaster}, appt))
}
