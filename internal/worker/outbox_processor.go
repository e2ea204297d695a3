package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/internal/repository"
	"github.com/saqreed/super-sto-sub000/pkg/logger"
	"github.com/saqreed/super-sto-sub000/pkg/messaging"
	"github.com/saqreed/super-sto-sub000/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RetainFor     time.Duration
}

// OutboxProcessor drains the side-effect queue written by the workflow
// engine and publishes to the broker. It is fire-and-forget from the
// engine's perspective: failures here never touch appointment state.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(repo repository.OutboxRepository, broker messaging.Broker,
	config OutboxProcessorConfig, log *logger.Logger, m *metrics.Metrics) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process events")
			}
			p.cleanup(ctx)
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.publish(ctx, event)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		return p.repo.MarkProcessed(ctx, event.ID)
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	errStr := err.Error()

	if event.RetryCount+1 >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		if markErr := p.repo.MarkFailed(ctx, event.ID, errStr, nil); markErr != nil {
			p.logger.Error(markErr, "failed to park event", "event_id", event.ID.String())
		}
		return err
	}

	// Linear backoff: each retry waits one more delay unit.
	retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
	if markErr := p.repo.MarkFailed(ctx, event.ID, errStr, &retryAt); markErr != nil {
		p.logger.Error(markErr, "failed to schedule retry", "event_id", event.ID.String())
	}
	return err
}

// publish routes an event to the channels its collaborators listen on.
func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{Type: event.EventType, Payload: json.RawMessage(event.Payload)}

	switch event.EventType {
	case model.EventAppointmentTransition:
		if err := p.broker.Publish(ctx, messaging.ChannelAppointmentTransition, msg); err != nil {
			return err
		}
		return p.broker.Publish(ctx, messaging.ChannelNotification, msg)
	case model.EventLoyaltyAccrual:
		return p.broker.Publish(ctx, messaging.ChannelLoyaltyAccrual, msg)
	default:
		return p.broker.Publish(ctx, messaging.ChannelNotification, msg)
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	if p.config.RetainFor <= 0 {
		return
	}
	deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-p.config.RetainFor))
	if err != nil {
		p.logger.Error(err, "failed to clean up processed events")
		return
	}
	if deleted > 0 {
		p.logger.Debug("cleaned up processed events", "deleted", deleted)
	}
}
