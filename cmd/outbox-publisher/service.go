package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/outbox/registry"
)

const (
	publisherName      = "outbox-publisher"
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// deliveryGuard remembers events that reached Pub/Sub so a row whose
// MarkPublished commit was lost is not published twice.
type deliveryGuard interface {
	Seen(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error)
	MarkDelivered(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error)
}

type publishCounter interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType, reason string)
}

// ServiceParams wires the publisher. Guard and Metrics are optional.
type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Guard            deliveryGuard
	Metrics          publishCounter
}

func (p ServiceParams) validate() error {
	required := []struct {
		missing bool
		name    string
	}{
		{p.Config == nil, "config"},
		{p.Logger == nil, "logger"},
		{p.DB == nil, "database client"},
		{p.PubSub == nil, "pubsub client"},
		{p.Repository == nil, "outbox repository"},
		{p.Registry == nil, "event registry"},
		{p.DLQRepository == nil, "dlq repository"},
	}
	for _, dep := range required {
		if dep.missing {
			return fmt.Errorf("%s is required", dep.name)
		}
	}
	return nil
}

// Service drains outbox rows to Pub/Sub, one transaction per batch.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	repo      outboxRepository
	pubsub    pubSubClient
	registry  registryResolver
	dlq       dlqRepository
	guard     deliveryGuard
	metrics   publishCounter
	topicPub  publisherFactory
	batchSize int
	attempts  int
	idle      time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		pubsub:    params.PubSub,
		registry:  params.Registry,
		dlq:       params.DLQRepository,
		guard:     params.Guard,
		metrics:   params.Metrics,
		topicPub:  params.PublisherFactory,
		batchSize: positiveOr(cfg.BatchSize, defaultBatchSize),
		attempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		idle:      cfg.PollInterval(),
	}
	if svc.topicPub == nil {
		svc.topicPub = gcpPublisherFactory(params.PubSub)
	}
	return svc, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls the outbox until ctx is canceled. An empty batch waits one poll
// interval; a failed batch waits on a doubling backoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.checkDependencies(ctx); err != nil {
		return err
	}

	wait := s.idle
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			wait = nextBackoff(wait, s.idle, maxBackoff)
		case processed:
			wait = s.idle
			continue
		default:
			wait = s.idle
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *Service) checkDependencies(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", check.name), "outbox.dependency_unavailable", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}
