package cron

import (
	"context"
	"errors"
	"time"

	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/outbox"
)

type dlqSummarizer interface {
	SummarizeSince(ctx context.Context, since time.Time) ([]outbox.DLQSummary, error)
}

type pendingCounter interface {
	CountPending(ctx context.Context, maxAttempts int) (int64, error)
}

// DLQReportJobParams configures the report. Pending is optional; when set the
// report also carries the relay backlog.
type DLQReportJobParams struct {
	Logger      *logger.Logger
	Repository  dlqSummarizer
	Pending     pendingCounter
	MaxAttempts int
	Window      time.Duration
}

// NewDLQReportJob warns about events dead-lettered inside the last window.
// A dead-lettered benefit_claimed means a downstream subscriber never saw
// that claim.
func NewDLQReportJob(params DLQReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("dlq repository required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultInterval
	}
	return &dlqReportJob{
		logg:        params.Logger,
		repo:        params.Repository,
		pending:     params.Pending,
		maxAttempts: params.MaxAttempts,
		window:      window,
		now:         time.Now,
	}, nil
}

type dlqReportJob struct {
	logg        *logger.Logger
	repo        dlqSummarizer
	pending     pendingCounter
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func (j *dlqReportJob) Name() string { return "outbox-dlq-report" }

func (j *dlqReportJob) Run(ctx context.Context) error {
	since := j.now().UTC().Add(-j.window)
	summary, err := j.repo.SummarizeSince(ctx, since)
	if err != nil {
		return err
	}
	var total int64
	for _, row := range summary {
		total += row.Count
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"event_type":   string(row.EventType),
			"error_reason": string(row.ErrorReason),
			"count":        row.Count,
		}), "outbox.dlq.backlog")
	}
	fields := map[string]any{
		"since":         since.Format(time.RFC3339),
		"dead_lettered": total,
	}
	if j.pending != nil {
		pending, err := j.pending.CountPending(ctx, j.maxAttempts)
		if err != nil {
			return err
		}
		fields["pending"] = pending
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox.dlq.report.complete")
	return nil
}
