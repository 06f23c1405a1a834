package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/metrics"
	"github.com/olusolaa/fleet-provisioner/internal/validation"
)

// Endpoint adapts the reconciler to the custom resource protocol. Handle
// always produces a terminal result.
type Endpoint struct {
	reconciler ports.Reconciler
	validate   *validator.Validate
	logger     ports.Logger
	metrics    *metrics.Metrics
}

type Option func(*Endpoint)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Endpoint) {
		e.metrics = m
	}
}

func NewEndpoint(reconciler ports.Reconciler, logger ports.Logger, opts ...Option) (*Endpoint, error) {
	if reconciler == nil {
		return nil, errors.New(errors.CodeConfigValidation, "reconciler cannot be nil")
	}
	if logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil for lifecycle endpoint")
	}
	e := &Endpoint{reconciler: reconciler, validate: validation.New(), logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Endpoint) Handle(ctx context.Context, event cfn.Event) (result domain.LifecycleResult) {
	start := time.Now()
	requestType := domain.RequestType(event.RequestType)
	logger := e.logger.WithFields(map[string]any{
		"invocation_id":       uuid.NewString(),
		"request_id":          event.RequestID,
		"request_type":        string(event.RequestType),
		"logical_resource_id": event.LogicalResourceID,
	})

	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.CodeInternal, fmt.Sprintf("reconciler panicked: %v", r))
			logger.Errorf(ctx, err, "Lifecycle handler recovered from panic")
			result = domain.Failed(failedPhysicalID(event), errors.Reason(err))
		}
		e.metrics.ObserveLifecycle(requestType, result)
		logger.Infof(ctx, "Lifecycle %s finished in %s: %s", requestType, time.Since(start).Round(time.Millisecond), result)
	}()

	if !requestType.Valid() {
		logger.Warnf(ctx, "Unsupported request type %q", event.RequestType)
		return domain.Failed(failedPhysicalID(event), fmt.Sprintf("unsupported request type %q", event.RequestType))
	}

	ev, err := toEvent(event, e.validate)
	if err != nil {
		if requestType != domain.RequestDelete {
			logger.Warnf(ctx, "Rejecting lifecycle event: %v", err)
			return domain.Failed(failedPhysicalID(event), errors.Reason(err))
		}
		// Deleting needs only the physical ID.
		logger.Warnf(ctx, "Ignoring undecodable properties on delete: %v", err)
	}

	var res domain.LifecycleResult
	switch requestType {
	case domain.RequestCreate:
		res, err = e.reconciler.Create(ctx, ev)
	case domain.RequestUpdate:
		res, err = e.reconciler.Update(ctx, ev)
	case domain.RequestDelete:
		res, err = e.reconciler.Delete(ctx, ev)
	}
	if err != nil {
		logger.Errorf(ctx, err, "Lifecycle %s failed", requestType)
		return domain.Failed(failedPhysicalID(event), errors.Reason(err))
	}
	return res
}

// failedPhysicalID is the identifier reported with a failure. Update and
// Delete keep the existing one; a failed Create reports the name it tried
// to create, or a request-scoped placeholder that names no group.
func failedPhysicalID(event cfn.Event) string {
	if event.PhysicalResourceID != "" {
		return event.PhysicalResourceID
	}
	if name, ok := withGroupName(event.ResourceProperties)[propertyGroupName].(string); ok && validation.IsIoTName(name) {
		return name
	}
	return fmt.Sprintf("%s/%s", event.LogicalResourceID, event.RequestID)
}
