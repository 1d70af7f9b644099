package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxRetentionJobUsesCutoffAndTerminalAttempts(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{}
	job := newOutboxRetentionJob(t, repo, 7*24*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, repo.called)
	assert.True(t, repo.cutoff.Equal(now.Add(-7*24*time.Hour)))
	assert.Equal(t, 10, repo.terminalAttempts)
}

func TestOutboxRetentionJobDefaultsRetention(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{}
	job := newOutboxRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, repo.cutoff.Equal(now.Add(-defaultOutboxRetention)))
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxPruner{err: errors.New("boom")}, 0)
	assert.EqualError(t, job.Run(context.Background()), "boom")
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxPruner, retention time.Duration) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:           testLogger(),
		DB:               passthroughTx{},
		Repository:       repo,
		Retention:        retention,
		TerminalAttempts: 10,
	})
	require.NoError(t, err)
	typed, ok := job.(*outboxRetentionJob)
	require.True(t, ok)
	return typed
}

type fakeOutboxPruner struct {
	cutoff           time.Time
	terminalAttempts int
	called           int
	err              error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error) {
	f.called++
	f.cutoff = cutoff
	f.terminalAttempts = terminalAttempts
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
