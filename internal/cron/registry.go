package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Job is one housekeeping task. Name doubles as the metrics label.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds a worker's jobs in run order. The zero value is empty and
// ready to use.
type Registry struct {
	order []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in the given order, skipping nil entries.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("cron: nil job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("cron: job name is required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	r.names[name] = struct{}{}
	r.order = append(r.order, job)
	return nil
}

func (r *Registry) Jobs() []Job { return slices.Clone(r.order) }

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, job := range r.order {
		names = append(names, job.Name())
	}
	return names
}
