package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/internal/repository"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (
			id, client_id, master_id, assigned_by, service_id, service_station_id,
			scheduled_at, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	appt.ID = uuid.New()
	appt.Status = model.AppointmentStatusPending
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	_, err = tx.ExecContext(ctx, query,
		appt.ID,
		appt.ClientID,
		appt.MasterID,
		appt.AssignedBy,
		appt.ServiceID,
		appt.ServiceStationID,
		appt.ScheduledAt,
		appt.Status,
		appt.Notes,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, client_id, master_id, assigned_by, service_id, service_station_id,
			   scheduled_at, status, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	report, err := r.GetWorkReport(ctx, id)
	if err != nil && !apperror.Is(err, apperror.CodeNotFound) {
		return nil, err
	}
	appt.WorkReport = report

	return &appt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, client_id, master_id, assigned_by, service_id, service_station_id,
			   scheduled_at, status, notes, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.ClientID != uuid.Nil {
			query += fmt.Sprintf(" AND client_id = $%d", argCount)
			args = append(args, filters.ClientID)
			argCount++
		}
		if filters.MasterID != uuid.Nil {
			query += fmt.Sprintf(" AND master_id = $%d", argCount)
			args = append(args, filters.MasterID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.StationID != uuid.Nil {
			query += fmt.Sprintf(" AND service_station_id = $%d", argCount)
			args = append(args, filters.StationID)
			argCount++
		}
		if !filters.DateFrom.IsZero() {
			query += fmt.Sprintf(" AND scheduled_at >= $%d", argCount)
			args = append(args, filters.DateFrom)
			argCount++
		}
		if !filters.DateTo.IsZero() {
			query += fmt.Sprintf(" AND scheduled_at <= $%d", argCount)
			args = append(args, filters.DateTo)
			argCount++
		}
	}

	query += " ORDER BY scheduled_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) AssignMaster(ctx context.Context, id, masterID, assignedBy uuid.UUID, expectedStatus model.AppointmentStatus, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET master_id = $1, assigned_by = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := tx.ExecContext(ctx, query, masterID, assignedBy, time.Now(), id, expectedStatus)
	if err != nil {
		return fmt.Errorf("failed to assign master: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.staleRowError(ctx, id)
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *appointmentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, events []*model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := tx.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to transition appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.staleRowError(ctx, id)
	}

	for _, event := range events {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *appointmentRepository) ReplaceWorkReport(ctx context.Context, report *model.WorkReport, allowedStatuses []model.AppointmentStatus, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Guard against the appointment having moved to a status that no
	// longer accepts a report between authorization and commit.
	guard := `SELECT status FROM appointments WHERE id = $1 FOR UPDATE`
	var status model.AppointmentStatus
	err = tx.GetContext(ctx, &status, guard, report.AppointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("appointment")
	}
	if err != nil {
		return fmt.Errorf("failed to lock appointment: %w", err)
	}
	allowed := false
	for _, s := range allowedStatuses {
		if s == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.Conflict(fmt.Sprintf("appointment status changed to %s", status))
	}

	now := time.Now()
	report.UpdatedAt = now
	upsert := `
		INSERT INTO work_reports (
			appointment_id, description, labor_minutes, additional_costs,
			recommendations, parts_total, total_cost, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (appointment_id) DO UPDATE SET
			description = EXCLUDED.description,
			labor_minutes = EXCLUDED.labor_minutes,
			additional_costs = EXCLUDED.additional_costs,
			recommendations = EXCLUDED.recommendations,
			parts_total = EXCLUDED.parts_total,
			total_cost = EXCLUDED.total_cost,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`
	err = tx.GetContext(ctx, &report.CreatedAt, upsert,
		report.AppointmentID,
		report.Description,
		report.LaborMinutes,
		report.AdditionalCosts,
		report.Recommendations,
		report.PartsTotal,
		report.TotalCost,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save work report: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM work_report_parts WHERE appointment_id = $1`, report.AppointmentID); err != nil {
		return fmt.Errorf("failed to clear work report parts: %w", err)
	}

	partInsert := `
		INSERT INTO work_report_parts (
			appointment_id, position, product_id, product_name, quantity, unit_price, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, part := range report.UsedParts {
		if _, err := tx.ExecContext(ctx, partInsert,
			report.AppointmentID, i, part.ProductID, part.ProductName,
			part.Quantity, part.UnitPrice, part.TotalPrice,
		); err != nil {
			return fmt.Errorf("failed to insert work report part: %w", err)
		}
	}

	if event != nil {
		if err := insertOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *appointmentRepository) GetWorkReport(ctx context.Context, appointmentID uuid.UUID) (*model.WorkReport, error) {
	query := `
		SELECT appointment_id, description, labor_minutes, additional_costs,
			   recommendations, parts_total, total_cost, created_at, updated_at
		FROM work_reports
		WHERE appointment_id = $1
	`
	var report model.WorkReport
	err := r.db.GetContext(ctx, &report, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("work report")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work report: %w", err)
	}

	partsQuery := `
		SELECT product_id, product_name, quantity, unit_price, total_price
		FROM work_report_parts
		WHERE appointment_id = $1
		ORDER BY position ASC
	`
	err = r.db.SelectContext(ctx, &report.UsedParts, partsQuery, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get work report parts: %w", err)
	}

	return &report, nil
}

// staleRowError distinguishes a lost compare-and-swap from a missing row.
func (r *appointmentRepository) staleRowError(ctx context.Context, id uuid.UUID) error {
	var current model.AppointmentStatus
	err := r.db.GetContext(ctx, &current, `SELECT status FROM appointments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("appointment")
	}
	if err != nil {
		return fmt.Errorf("failed to re-read appointment: %w", err)
	}
	return apperror.Conflict(fmt.Sprintf("appointment status changed to %s", current))
}

func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.RetryCount,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
