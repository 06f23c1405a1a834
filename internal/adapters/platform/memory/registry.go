// Package memory is an in-process thing group registry for local runs and
// tests. It mimics the AWS registry's error codes and lets tests inject
// faults and visibility lag.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

const (
	OpDescribe = "Describe"
	OpCreate   = "Create"
	OpUpdate   = "Update"
	OpDelete   = "Delete"
)

type Registry struct {
	mu        sync.Mutex
	region    string
	accountID string
	groups    map[string]*domain.ThingGroup
	faults    map[string][]error
	lag       map[string]int
	calls     map[string]int
}

var _ ports.GroupRegistry = (*Registry)(nil)

func NewRegistry(region, accountID string) *Registry {
	return &Registry{
		region:    region,
		accountID: accountID,
		groups:    make(map[string]*domain.ThingGroup),
		faults:    make(map[string][]error),
		lag:       make(map[string]int),
		calls:     make(map[string]int),
	}
}

// FailNext queues err to be returned by the next call of op.
func (r *Registry) FailNext(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[op] = append(r.faults[op], err)
}

// Lag makes the next n Describe calls for name miss a group that exists,
// and see a deleted one, like an eventually consistent read.
func (r *Registry) Lag(name string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lag[name] = n
}

// Seed stores group as-is, bypassing ownership and fault handling.
func (r *Registry) Seed(group domain.ThingGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := clone(&group)
	if g.ARN == "" {
		g.ARN = r.arn(g.Name)
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Version == 0 {
		g.Version = 1
	}
	r.groups[g.Name] = g
}

// Get returns a copy of the stored group without counting as a call.
func (r *Registry) Get(name string) (*domain.ThingGroup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		return nil, false
	}
	return clone(g), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Calls reports how many times op was invoked.
func (r *Registry) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *Registry) Describe(ctx context.Context, name string) (*domain.ThingGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(ctx, OpDescribe); err != nil {
		return nil, err
	}
	g, ok := r.groups[name]
	if n := r.lag[name]; n > 0 {
		r.lag[name] = n - 1
		if ok {
			return nil, notFound(name)
		}
		// A deleted group lingers for lagging readers.
		return &domain.ThingGroup{Name: name, ARN: r.arn(name)}, nil
	}
	if !ok {
		return nil, notFound(name)
	}
	return clone(g), nil
}

func (r *Registry) Create(ctx context.Context, spec domain.GroupSpec) (*domain.ThingGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(ctx, OpCreate); err != nil {
		return nil, err
	}
	if _, exists := r.groups[spec.Name]; exists {
		return nil, errors.New(errors.CodeResourceAlreadyExists, fmt.Sprintf("thing group '%s' already exists", spec.Name))
	}
	g := &domain.ThingGroup{
		Name:        spec.Name,
		ARN:         r.arn(spec.Name),
		ID:          uuid.NewString(),
		Description: spec.Description,
		Attributes:  copyMap(spec.Attributes),
		Version:     1,
	}
	r.groups[spec.Name] = g
	return clone(g), nil
}

func (r *Registry) Update(ctx context.Context, spec domain.GroupSpec, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(ctx, OpUpdate); err != nil {
		return err
	}
	g, ok := r.groups[spec.Name]
	if !ok {
		return notFound(spec.Name)
	}
	if expectedVersion > 0 && expectedVersion != g.Version {
		return errors.New(errors.CodeTransientExternal,
			fmt.Sprintf("thing group '%s' is at version %d, expected %d", spec.Name, g.Version, expectedVersion))
	}
	if spec.Description != "" {
		g.Description = spec.Description
	}
	g.Attributes = copyMap(spec.Attributes)
	g.Version++
	return nil
}

func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(ctx, OpDelete); err != nil {
		return err
	}
	if _, ok := r.groups[name]; !ok {
		return notFound(name)
	}
	delete(r.groups, name)
	return nil
}

// enter must be called with mu held.
func (r *Registry) enter(ctx context.Context, op string) error {
	r.calls[op]++
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeTimeout, fmt.Sprintf("%s interrupted", op))
	}
	if queued := r.faults[op]; len(queued) > 0 {
		r.faults[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (r *Registry) arn(name string) string {
	return fmt.Sprintf("arn:aws:iot:%s:%s:thinggroup/%s", r.region, r.accountID, name)
}

func notFound(name string) error {
	return errors.New(errors.CodeResourceNotFound, fmt.Sprintf("thing group '%s' not found", name))
}

func clone(g *domain.ThingGroup) *domain.ThingGroup {
	c := *g
	c.Attributes = copyMap(g.Attributes)
	return &c
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
