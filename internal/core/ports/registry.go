package ports

import (
	"context"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

// GroupRegistry is the source of truth for thing group existence. Describe
// returns an AppError with CodeResourceNotFound when the group is absent.
type GroupRegistry interface {
	Describe(ctx context.Context, name string) (*domain.ThingGroup, error)
	Create(ctx context.Context, spec domain.GroupSpec) (*domain.ThingGroup, error)
	Update(ctx context.Context, spec domain.GroupSpec, expectedVersion int64) error
	Delete(ctx context.Context, name string) error
}

// GroupRegistryFactory hands out registries bound to a region. An empty
// region selects the default region.
type GroupRegistryFactory interface {
	ForRegion(ctx context.Context, region string) (GroupRegistry, error)
}
