package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string { return s.name }

func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	retention := &stubJob{name: "outbox-retention"}
	audit := &stubJob{name: "ledger-audit"}
	registry, err := NewRegistry(retention, nil)
	require.NoError(t, err)
	require.NoError(t, registry.Register(audit))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, retention, jobs[0])
	assert.Same(t, audit, jobs[1])
	assert.Equal(t, []string{"outbox-retention", "ledger-audit"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "ledger-audit"}, &stubJob{name: "ledger-audit"})
	assert.ErrorContains(t, err, `"ledger-audit" registered twice`)

	var registry Registry
	assert.ErrorContains(t, registry.Register(&stubJob{name: "  "}), "name is required")
	assert.Error(t, registry.Register(nil))
	assert.Empty(t, registry.Jobs())
}
