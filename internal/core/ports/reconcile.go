package ports

import (
	"context"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

type Reconciler interface {
	Create(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error)
	Update(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error)
	Delete(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error)
}
