package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	"github.com/civicgrid/resident-portal/pkg/outbox/registry"
)

// processBatch claims up to batchSize rows under a row lock and settles each
// one inside the same transaction. It reports whether any row was seen.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var seen bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.attempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		seen = len(events) > 0
		for _, event := range events {
			if err := s.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return seen, err
}

// dispatch publishes one row and records the outcome on it. Publish failures
// are bookkept on the row; only bookkeeping failures abort the batch.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, nil, enums.OutboxDLQReasonNonRetryable, err)
	}

	logCtx := s.logg.WithFields(ctx, eventFields(event, resolved))

	if s.delivered(logCtx, event) {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox.event.already_delivered")
		return nil
	}

	sendErr := s.send(ctx, event, resolved)
	switch {
	case sendErr == nil:
		return s.settlePublished(logCtx, tx, event)
	case registry.IsNonRetryable(sendErr):
		return s.deadLetter(ctx, tx, event, resolved, enums.OutboxDLQReasonNonRetryable, sendErr)
	case event.AttemptCount+1 >= s.attempts:
		return s.deadLetter(ctx, tx, event, resolved, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", sendErr))
	default:
		return s.settleFailed(logCtx, tx, event, sendErr)
	}
}

func (s *Service) settlePublished(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	s.remember(ctx, event)
	if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	if s.metrics != nil {
		s.metrics.IncPublished(string(event.EventType))
	}
	s.logg.Info(ctx, "outbox.event.published")
	return nil
}

func (s *Service) settleFailed(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, cause error) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"attempt_count": event.AttemptCount + 1,
		"error":         cause.Error(),
	})
	s.logg.Warn(ctx, "outbox.event.publish_failed")
	if s.metrics != nil {
		s.metrics.IncFailed(string(event.EventType))
	}
	if err := s.repo.MarkFailedTx(tx, event.ID, cause); err != nil {
		return fmt.Errorf("mark failed %s: %w", event.ID, err)
	}
	return nil
}

// deadLetter copies the row into the DLQ and retires it. resolved is nil when
// the row could not be decoded at all.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := eventFields(event, resolved)
	fields["error_reason"] = string(reason)
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.event.dead_lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.attempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	if s.metrics != nil {
		s.metrics.IncDeadLettered(string(event.EventType), string(reason))
	}
	return nil
}

// delivered consults the guard. Lookup errors fall through to a publish;
// subscribers dedupe on event_id.
func (s *Service) delivered(ctx context.Context, event models.OutboxEvent) bool {
	if s.guard == nil {
		return false
	}
	seen, err := s.guard.Seen(ctx, publisherName, event.ID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox.guard.lookup_failed")
		return false
	}
	return seen
}

func (s *Service) remember(ctx context.Context, event models.OutboxEvent) {
	if s.guard == nil {
		return
	}
	if _, err := s.guard.MarkDelivered(ctx, publisherName, event.ID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox.guard.write_failed")
	}
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved == nil {
		return fields
	}
	fields["topic"] = resolved.Descriptor.Topic
	if env := resolved.Envelope; env.EventID != "" {
		fields["event_id"] = env.EventID
		fields["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
	}
	return fields
}
