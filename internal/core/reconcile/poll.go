package reconcile

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

// poll runs check until it returns nil, a permanent error, or the attempt
// budget is used up.
func (r *Reconciler) poll(ctx context.Context, what string, check func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.PollInterval), uint64(r.cfg.PollAttempts-1)),
		ctx,
	)
	err := backoff.Retry(check, policy)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), errors.CodeTimeout, fmt.Sprintf("interrupted while waiting for %s", what))
	}
	if !retryable(err) {
		return err
	}
	return errors.New(errors.CodeNotConverged,
		fmt.Sprintf("%s after %d attempts: %s", what, r.cfg.PollAttempts, errors.Reason(err)))
}

func (r *Reconciler) awaitPresent(ctx context.Context, reg ports.GroupRegistry, name string) (*domain.ThingGroup, error) {
	var group *domain.ThingGroup
	err := r.poll(ctx, fmt.Sprintf("thing group %s to become visible", name), func() error {
		g, err := r.describe(ctx, reg, name)
		if err == nil {
			group = g
			return nil
		}
		if retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *Reconciler) awaitAbsent(ctx context.Context, reg ports.GroupRegistry, name string) error {
	return r.poll(ctx, fmt.Sprintf("thing group %s to disappear", name), func() error {
		_, err := r.describe(ctx, reg, name)
		switch {
		case errors.Is(err, errors.CodeResourceNotFound):
			return nil
		case err == nil:
			return errors.New(errors.CodeNotConverged, "thing group still present")
		case retryable(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	})
}

func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.CodeResourceNotFound, errors.CodeTransientExternal, errors.CodeTimeout, errors.CodeNotConverged:
		return true
	default:
		return false
	}
}
