package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/outbox/payloads"
)

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{LedgerTopic: "ledger-topic", NotificationTopic: "notification-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	env, err := outbox.NewEnvelope(data, nil, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func rawEnvelope(t *testing.T, eventID string, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, OccurredAt: time.Now().UTC(), Data: json.RawMessage(data)})
	require.NoError(t, err)
	return raw
}

func TestResolveBenefitClaimed(t *testing.T) {
	residentID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventBenefitClaimed,
		AggregateType: enums.AggregateDistributionBatch,
		AggregateID:   uuid.New(),
		Payload: envelopeFor(t, payloads.BenefitClaimedEvent{
			BatchID:    uuid.New(),
			BatchName:  "Relief A",
			ResidentID: residentID,
			Items:      []payloads.BatchItemLine{{InventoryItemID: uuid.New(), Name: "Rice", Qty: 5}},
		}),
	}

	resolved, err := newTestEventRegistry(t).Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "ledger-topic", resolved.Descriptor.Topic)

	payload, ok := resolved.Payload.(*payloads.BenefitClaimedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	assert.Equal(t, residentID, payload.ResidentID)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 5, payload.Items[0].Qty)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestResolveRoutesBatchCreatedToNotifications(t *testing.T) {
	event := models.OutboxEvent{
		EventType:     enums.EventBatchCreated,
		AggregateType: enums.AggregateDistributionBatch,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, payloads.BatchCreatedEvent{BatchID: uuid.New(), Name: "Relief A", TargetClass: enums.ClassificationBoth}),
	}
	resolved, err := newTestEventRegistry(t).Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "notification-topic", resolved.Descriptor.Topic)
}

func TestResolveRejectsBadRows(t *testing.T) {
	okID := uuid.NewString()
	tests := []struct {
		name  string
		event models.OutboxEvent
	}{
		{"unknown event type", models.OutboxEvent{
			EventType: "resident_registered", AggregateType: enums.AggregateDistributionBatch, AggregateID: uuid.New(),
			Payload: rawEnvelope(t, okID, `{"reason":"none"}`),
		}},
		{"aggregate mismatch", models.OutboxEvent{
			EventType: enums.EventBenefitClaimed, AggregateType: enums.AggregateInventoryItem, AggregateID: uuid.New(),
			Payload: rawEnvelope(t, okID, `{"items":[]}`),
		}},
		{"missing aggregate id", models.OutboxEvent{
			EventType: enums.EventItemDeleted, AggregateType: enums.AggregateInventoryItem,
			Payload: rawEnvelope(t, okID, `{}`),
		}},
		{"null data", models.OutboxEvent{
			EventType: enums.EventBatchCreated, AggregateType: enums.AggregateDistributionBatch, AggregateID: uuid.New(),
			Payload: rawEnvelope(t, okID, `null`),
		}},
		{"event id not a uuid", models.OutboxEvent{
			EventType: enums.EventBatchCreated, AggregateType: enums.AggregateDistributionBatch, AggregateID: uuid.New(),
			Payload: rawEnvelope(t, "evt-1", fmt.Sprintf(`{"batch_id":%q}`, uuid.NewString())),
		}},
		{"payload fails validation", models.OutboxEvent{
			EventType: enums.EventItemDeleted, AggregateType: enums.AggregateInventoryItem, AggregateID: uuid.New(),
			Payload: rawEnvelope(t, okID, `{"name":"Rice"}`),
		}},
		{"undecodable payload", models.OutboxEvent{
			EventType: enums.EventBenefitClaimed, AggregateType: enums.AggregateDistributionBatch, AggregateID: uuid.New(),
			Payload: rawEnvelope(t, okID, `{"items":"rice"}`),
		}},
		{"not json", models.OutboxEvent{
			EventType: enums.EventBatchCreated, AggregateType: enums.AggregateDistributionBatch, AggregateID: uuid.New(),
			Payload: json.RawMessage(`{`),
		}},
	}
	reg := newTestEventRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Resolve(tt.event)
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err), "expected non-retryable, got %T", err)
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"})
	assert.Error(t, err)
	_, err = NewEventRegistry(config.PubSubConfig{LedgerTopic: "l"})
	assert.Error(t, err)
}

func TestTopicsAreDistinctAndSorted(t *testing.T) {
	assert.Equal(t, []string{"ledger-topic", "notification-topic"}, newTestEventRegistry(t).Topics())
}

func TestIsNonRetryable(t *testing.T) {
	wrapped := fmt.Errorf("publish: %w", NewNonRetryableError(errors.New("bad row")))
	assert.True(t, IsNonRetryable(wrapped))
	assert.EqualError(t, wrapped, "publish: bad row")
	assert.False(t, IsNonRetryable(errors.New("timeout")))
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}
