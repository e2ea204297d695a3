package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/internal/repository"
	"github.com/saqreed/super-sto-sub000/internal/service/costing"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
	"github.com/saqreed/super-sto-sub000/pkg/logger"
	"github.com/saqreed/super-sto-sub000/pkg/metrics"
)

// Service is the workflow engine: the only write path for appointment
// state. Every status change goes through AuthorizeTransition and a
// compare-and-swap commit that records its side effects in the outbox.
type Service struct {
	repo    repository.AppointmentRepository
	catalog repository.CatalogRepository
	costing *costing.Service
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.AppointmentRepository, catalog repository.CatalogRepository,
	costingSvc *costing.Service, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		costing: costingSvc,
		metrics: m,
		logger:  log,
	}
}

// Create books a new appointment for the client. It always starts at
// PENDING; the service and station references must resolve in the catalog.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	svc, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return nil, apperror.Validation(fmt.Sprintf("unknown service %s", req.ServiceID))
		}
		return nil, err
	}
	if !svc.IsActive {
		return nil, apperror.Validation(fmt.Sprintf("service %s is not bookable", req.ServiceID))
	}

	station, err := s.catalog.GetServiceStation(ctx, req.ServiceStationID)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return nil, apperror.Validation(fmt.Sprintf("unknown service station %s", req.ServiceStationID))
		}
		return nil, err
	}
	if !station.IsActive {
		return nil, apperror.Validation(fmt.Sprintf("service station %s is not bookable", req.ServiceStationID))
	}

	appt := &model.Appointment{
		ClientID:         clientID,
		ServiceID:        req.ServiceID,
		ServiceStationID: req.ServiceStationID,
		ScheduledAt:      req.ScheduledAt,
		Notes:            req.Notes,
	}

	event, err := outboxEvent(model.EventAppointmentCreated, appt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, appt, event); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID.String(),
		"client_id", clientID.String())
	return appt, nil
}

// AssignMaster sets or changes the technician. Only admins may assign,
// and only while status is PENDING or CONFIRMED; status itself never
// changes here.
func (s *Service) AssignMaster(ctx context.Context, id, masterID uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := AuthorizeAssignMaster(actor, appt); err != nil {
		s.countDenial(err)
		return nil, err
	}

	master, err := s.catalog.GetMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}

	event, err := outboxEvent(model.EventMasterAssigned, map[string]interface{}{
		"appointment_id": id,
		"master_id":      master.ID,
		"client_id":      appt.ClientID,
		"assigned_by":    actor.ID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.AssignMaster(ctx, id, master.ID, actor.ID, appt.Status, event); err != nil {
		return nil, err
	}

	appt.MasterID = &master.ID
	appt.AssignedBy = &actor.ID
	appt.UpdatedAt = time.Now()

	s.logger.Info("master assigned",
		"appointment_id", id.String(),
		"master_id", masterID.String(),
		"assigned_by", actor.ID.String())
	return appt, nil
}

// Transition is the single entry point for all status changes. The
// authorization decision is made against the loaded snapshot; the store
// commit re-checks that snapshot with a compare-and-swap, so two racing
// transitions cannot both succeed.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target model.AppointmentStatus, actor model.Actor) (*model.Appointment, error) {
	if !target.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown status %q", target))
	}

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := AuthorizeTransition(actor, appt, target); err != nil {
		s.countDenial(err)
		return nil, err
	}

	events, err := s.transitionEvents(appt, target, actor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TransitionStatus(ctx, id, appt.Status, target, events); err != nil {
		if apperror.Is(err, apperror.CodeConflict) && s.metrics != nil {
			s.metrics.TransitionClashes.Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(appt.Status), string(target)).Inc()
	}
	s.logger.Info("appointment transitioned",
		"appointment_id", id.String(),
		"from", string(appt.Status),
		"to", string(target),
		"actor_id", actor.ID.String())

	appt.Status = target
	appt.UpdatedAt = time.Now()
	return appt, nil
}

// PutWorkReport creates or wholesale-replaces the work report. The
// costing pass runs entirely before any state is written, so a report is
// either fully priced or absent.
func (s *Service) PutWorkReport(ctx context.Context, id uuid.UUID, req *model.WorkReportRequest, actor model.Actor) (*model.WorkReport, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := AuthorizeWorkReport(actor, appt); err != nil {
		s.countDenial(err)
		return nil, err
	}

	allowed := []model.AppointmentStatus{model.AppointmentStatusInProgress, model.AppointmentStatusCompleted}
	if appt.Status != allowed[0] && appt.Status != allowed[1] {
		return nil, apperror.Validation(
			fmt.Sprintf("work report requires an appointment in progress or completed, got %s", appt.Status))
	}

	if req.LaborMinutes < 1 {
		return nil, apperror.Validation("labor minutes must be a positive integer")
	}

	// Bound the catalog round trips unless the caller already did.
	costCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		costCtx, cancel = context.WithTimeout(ctx, costing.DefaultResolveTimeout)
		defer cancel()
	}

	result, err := s.costing.Compute(costCtx, req.UsedParts, req.AdditionalCosts)
	if err != nil {
		return nil, err
	}

	report := &model.WorkReport{
		AppointmentID:   id,
		Description:     req.Description,
		UsedParts:       result.LineItems,
		LaborMinutes:    req.LaborMinutes,
		AdditionalCosts: req.AdditionalCosts,
		Recommendations: req.Recommendations,
		PartsTotal:      result.PartsTotal,
		TotalCost:       result.TotalCost,
	}

	event, err := outboxEvent(model.EventWorkReportSaved, report)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceWorkReport(ctx, report, allowed, event); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.WorkReportsSaved.Inc()
	}
	s.logger.Info("work report saved",
		"appointment_id", id.String(),
		"total_cost", report.TotalCost,
		"actor_id", actor.ID.String())
	return report, nil
}

// Get returns the appointment with its work report embedded, scoped to
// what the actor may see.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.readDenial(actor, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// List returns appointments visible to the actor. Clients are pinned to
// their own records, masters to their assignments.
func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters, actor model.Actor) ([]*model.Appointment, error) {
	if filters == nil {
		filters = &model.AppointmentFilters{}
	}
	switch actor.Role {
	case model.RoleClient:
		filters.ClientID = actor.ID
	case model.RoleMaster:
		filters.MasterID = actor.ID
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) GetWorkReport(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.WorkReport, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.readDenial(actor, appt); err != nil {
		return nil, err
	}
	if appt.WorkReport == nil {
		return nil, apperror.NotFound("work report")
	}
	return appt.WorkReport, nil
}

func (s *Service) transitionEvents(appt *model.Appointment, target model.AppointmentStatus, actor model.Actor) ([]*model.OutboxEvent, error) {
	now := time.Now()
	totalCost := 0.0
	if appt.WorkReport != nil {
		totalCost = appt.WorkReport.TotalCost
	}

	transition := model.TransitionEvent{
		AppointmentID: appt.ID,
		FromStatus:    appt.Status,
		ToStatus:      target,
		ActorID:       actor.ID,
		ClientID:      appt.ClientID,
		MasterID:      appt.MasterID,
		TotalCost:     totalCost,
		OccurredAt:    now,
	}
	event, err := outboxEvent(model.EventAppointmentTransition, transition)
	if err != nil {
		return nil, err
	}
	events := []*model.OutboxEvent{event}

	// Loyalty accrues exactly once, on completion.
	if target == model.AppointmentStatusCompleted {
		accrual := model.LoyaltyAccrualEvent{
			ClientID:      appt.ClientID,
			AppointmentID: appt.ID,
			TotalCost:     totalCost,
			OccurredAt:    now,
		}
		accrualEvent, err := outboxEvent(model.EventLoyaltyAccrual, accrual)
		if err != nil {
			return nil, err
		}
		events = append(events, accrualEvent)
	}

	return events, nil
}

func (s *Service) readDenial(actor model.Actor, appt *model.Appointment) error {
	if CanReadAppointment(actor, appt) {
		return nil
	}
	reason := apperror.ReasonNotOwner
	if actor.IsMaster() {
		reason = apperror.ReasonNotAssigned
	}
	err := apperror.Authorization(reason, "appointment is not visible to this actor")
	s.countDenial(err)
	return err
}

func (s *Service) countDenial(err error) {
	if s.metrics == nil {
		return
	}
	if appErr := apperror.As(err); appErr != nil && appErr.Reason != "" {
		s.metrics.TransitionDenied.WithLabelValues(string(appErr.Reason)).Inc()
	}
}

func outboxEvent(eventType string, payload interface{}) (*model.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &model.OutboxEvent{EventType: eventType, Payload: raw}, nil
}
