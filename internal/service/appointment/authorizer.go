package appointment

import (
	"fmt"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
)

// The transition table is the single decision point for status changes.
// Every (from, to) pair absent from the table is denied for all roles.
type transition struct {
	from, to model.AppointmentStatus
}

type transitionRule struct {
	roles []model.Role
	// ownership constraints beyond the role itself
	clientMustOwn   bool
	masterMustBeSet bool
}

var transitionTable = map[transition]transitionRule{
	{model.AppointmentStatusPending, model.AppointmentStatusConfirmed}: {
		roles: []model.Role{model.RoleAdmin},
	},
	{model.AppointmentStatusPending, model.AppointmentStatusCancelled}: {
		roles:         []model.Role{model.RoleClient, model.RoleAdmin},
		clientMustOwn: true,
	},
	{model.AppointmentStatusConfirmed, model.AppointmentStatusInProgress}: {
		roles:           []model.Role{model.RoleMaster},
		masterMustBeSet: true,
	},
	{model.AppointmentStatusInProgress, model.AppointmentStatusCompleted}: {
		roles: []model.Role{model.RoleMaster},
	},
	{model.AppointmentStatusInProgress, model.AppointmentStatusCancelled}: {
		roles: []model.Role{model.RoleMaster, model.RoleAdmin},
	},
}

// AuthorizeTransition decides whether actor may move appt to target.
// Returns nil to allow, or an authorization error carrying a
// machine-readable reason.
func AuthorizeTransition(actor model.Actor, appt *model.Appointment, target model.AppointmentStatus) error {
	if appt.Status.Terminal() {
		return apperror.Authorization(apperror.ReasonTerminalState,
			fmt.Sprintf("appointment is %s and cannot change status", appt.Status))
	}

	rule, ok := transitionTable[transition{appt.Status, target}]
	if !ok {
		return apperror.Authorization(apperror.ReasonInvalidTransition,
			fmt.Sprintf("transition %s -> %s is not allowed", appt.Status, target))
	}

	roleAllowed := false
	for _, role := range rule.roles {
		if actor.Role == role {
			roleAllowed = true
			break
		}
	}
	if !roleAllowed {
		return apperror.Authorization(apperror.ReasonWrongRole,
			fmt.Sprintf("role %s may not perform transition %s -> %s", actor.Role, appt.Status, target))
	}

	if actor.IsClient() && rule.clientMustOwn && actor.ID != appt.ClientID {
		return apperror.Authorization(apperror.ReasonNotOwner,
			"clients may only cancel their own appointments")
	}

	// A master who is not assigned to the appointment may not move it.
	if actor.IsMaster() && !appt.AssignedTo(actor.ID) {
		return apperror.Authorization(apperror.ReasonNotAssigned,
			"only the assigned master may perform this transition")
	}

	if rule.masterMustBeSet && !appt.HasMaster() {
		return apperror.Authorization(apperror.ReasonInvalidTransition,
			"a master must be assigned before work can start")
	}

	return nil
}

// AuthorizeAssignMaster gates master assignment and reassignment.
// Only admins may assign, and only while no work has started.
func AuthorizeAssignMaster(actor model.Actor, appt *model.Appointment) error {
	if !actor.IsAdmin() {
		return apperror.Authorization(apperror.ReasonWrongRole,
			"only admins may assign masters")
	}
	if appt.Status.Terminal() {
		return apperror.Authorization(apperror.ReasonTerminalState,
			fmt.Sprintf("appointment is %s and cannot be reassigned", appt.Status))
	}
	if appt.Status != model.AppointmentStatusPending && appt.Status != model.AppointmentStatusConfirmed {
		return apperror.Authorization(apperror.ReasonInvalidTransition,
			fmt.Sprintf("masters cannot be assigned while appointment is %s", appt.Status))
	}
	return nil
}

// AuthorizeWorkReport gates creation and wholesale replacement of the
// work report: the assigned master, or an admin.
func AuthorizeWorkReport(actor model.Actor, appt *model.Appointment) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsMaster() {
		return apperror.Authorization(apperror.ReasonWrongRole,
			"only the assigned master or an admin may submit a work report")
	}
	if !appt.AssignedTo(actor.ID) {
		return apperror.Authorization(apperror.ReasonNotAssigned,
			"only the assigned master may submit a work report")
	}
	return nil
}

// CanReadAppointment limits visibility: clients see their own
// appointments, masters the ones assigned to them, admins everything.
func CanReadAppointment(actor model.Actor, appt *model.Appointment) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleMaster:
		return appt.AssignedTo(actor.ID)
	case model.RoleClient:
		return appt.ClientID == actor.ID
	}
	return false
}
