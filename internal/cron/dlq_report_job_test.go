package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/pkg/enums"
	"github.com/civicgrid/resident-portal/pkg/logger"
	"github.com/civicgrid/resident-portal/pkg/outbox"
)

type fakeSummarizer struct {
	since   time.Time
	summary []outbox.DLQSummary
	err     error
}

func (f *fakeSummarizer) SummarizeSince(_ context.Context, since time.Time) ([]outbox.DLQSummary, error) {
	f.since = since
	return f.summary, f.err
}

func TestDLQReportJobWarnsPerGroup(t *testing.T) {
	var buf bytes.Buffer
	repo := &fakeSummarizer{summary: []outbox.DLQSummary{
		{EventType: enums.EventBenefitClaimed, ErrorReason: enums.OutboxDLQReasonMaxAttempts, Count: 3},
	}}
	job, err := NewDLQReportJob(DLQReportJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test", Output: &buf}),
		Repository: repo,
		Window:     2 * time.Hour,
	})
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.(*dlqReportJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, repo.since.Equal(now.Add(-2*time.Hour)))
	assert.Equal(t, 1, strings.Count(buf.String(), "outbox.dlq.backlog"))
	assert.Contains(t, buf.String(), `"event_type":"benefit_claimed"`)
	assert.Contains(t, buf.String(), `"dead_lettered":3`)
}

func TestDLQReportJobPropagatesError(t *testing.T) {
	job, err := NewDLQReportJob(DLQReportJobParams{Logger: testLogger(), Repository: &fakeSummarizer{err: errors.New("down")}})
	require.NoError(t, err)
	assert.EqualError(t, job.Run(context.Background()), "down")
}

type fakePending struct {
	maxAttempts int
	count       int64
}

func (f *fakePending) CountPending(_ context.Context, maxAttempts int) (int64, error) {
	f.maxAttempts = maxAttempts
	return f.count, nil
}

func TestDLQReportJobIncludesRelayBacklog(t *testing.T) {
	var buf bytes.Buffer
	pending := &fakePending{count: 7}
	job, err := NewDLQReportJob(DLQReportJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "cron-test", Output: &buf}),
		Repository:  &fakeSummarizer{},
		Pending:     pending,
		MaxAttempts: 10,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 10, pending.maxAttempts)
	assert.Contains(t, buf.String(), `"pending":7`)
	assert.Contains(t, buf.String(), `"dead_lettered":0`)
}
