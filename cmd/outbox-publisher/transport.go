package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/outbox/registry"
)

const publishTimeout = 15 * time.Second

var errNilPublishResult = errors.New("publisher returned no result")

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// gcpPublisherFactory adapts the cached topic publishers of the pubsub client.
func gcpPublisherFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return topicPublisher{p}
	}
}

type topicPublisher struct {
	inner *gcppubsub.Publisher
}

func (p topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := p.inner.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return res
}

// send publishes one resolved event and waits for the server ack. Missing
// publishers are configuration faults and never succeed on retry.
func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.topicPub(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	res := pub.Publish(ctx, messageFor(event, resolved.Envelope))
	if res == nil {
		return registry.NewNonRetryableError(fmt.Errorf("topic %q: %w", topic, errNilPublishResult))
	}
	_, err := res.Get(ctx)
	return err
}

// messageFor builds the Pub/Sub message. Subscribers filter on attributes,
// so the ledger keys are copied out of the envelope.
func messageFor(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if actor := envelope.Actor; actor != nil && actor.UserID != uuid.Nil {
		msg.Attributes["actor_id"] = actor.UserID.String()
	}
	return msg
}
