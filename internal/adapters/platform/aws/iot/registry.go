package iot

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"

	aws_errors "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/errors"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/shared"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

const resourceType = "thing group"

// Registry implements ports.GroupRegistry against the AWS IoT registry of a
// single region.
type Registry struct {
	client       IoTClientInterface
	region       string
	limiter      shared.RateLimiter
	errorHandler shared.ErrorHandler
	logger       ports.Logger
}

var _ ports.GroupRegistry = (*Registry)(nil)

// RegistryOption defines a function signature for configuring the Registry.
type RegistryOption func(*Registry)

func WithIoTClient(client IoTClientInterface) RegistryOption {
	return func(r *Registry) {
		if client != nil {
			r.client = client
		}
	}
}

func WithRateLimiter(limiter shared.RateLimiter) RegistryOption {
	return func(r *Registry) {
		if limiter != nil {
			r.limiter = limiter
		}
	}
}

func WithErrorHandler(handler shared.ErrorHandler) RegistryOption {
	return func(r *Registry) {
		if handler != nil {
			r.errorHandler = handler
		}
	}
}

func WithLogger(logger ports.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry for cfg.Region. Without WithIoTClient a
// client is built from cfg.
func NewRegistry(cfg aws.Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		region:       cfg.Region,
		errorHandler: &aws_errors.DefaultErrorHandler{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = iot.NewFromConfig(cfg)
	}
	return r
}

func (r *Registry) Region() string { return r.region }

func (r *Registry) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx, r.logger); err != nil {
		return errors.Wrap(err, errors.CodeTimeout, "AWS API rate limiter wait aborted")
	}
	return nil
}

func (r *Registry) debugf(ctx context.Context, format string, args ...any) {
	if r.logger != nil {
		r.logger.Debugf(ctx, format, args...)
	}
}

func (r *Registry) Describe(ctx context.Context, name string) (*domain.ThingGroup, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	out, err := r.client.DescribeThingGroup(ctx, &iot.DescribeThingGroupInput{
		ThingGroupName: aws.String(name),
	})
	if err != nil {
		return nil, r.errorHandler.Handle(resourceType, name, err, ctx)
	}
	if out == nil {
		return nil, errors.New(errors.CodeTransientExternal, "DescribeThingGroup returned an empty response")
	}
	group := groupFromDescribe(out)
	if group.Name == "" {
		group.Name = name
	}
	r.debugf(ctx, "Described thing group %s (version %d) in %s", name, group.Version, r.region)
	return group, nil
}

func (r *Registry) Create(ctx context.Context, spec domain.GroupSpec) (*domain.ThingGroup, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	out, err := r.client.CreateThingGroup(ctx, &iot.CreateThingGroupInput{
		ThingGroupName:       aws.String(spec.Name),
		ThingGroupProperties: propertiesFor(spec),
	})
	if err != nil {
		return nil, r.errorHandler.Handle(resourceType, spec.Name, err, ctx)
	}
	if out == nil {
		return nil, errors.New(errors.CodeTransientExternal, "CreateThingGroup returned an empty response")
	}
	r.debugf(ctx, "Created thing group %s in %s", spec.Name, r.region)

	attrs := make(map[string]string, len(spec.Attributes))
	for k, v := range spec.Attributes {
		attrs[k] = v
	}
	return &domain.ThingGroup{
		Name:        spec.Name,
		ARN:         aws.ToString(out.ThingGroupArn),
		ID:          aws.ToString(out.ThingGroupId),
		Description: spec.Description,
		Attributes:  attrs,
		Version:     1,
	}, nil
}

// Update replaces the group's description and attributes. A non-zero
// expectedVersion makes the call fail if the group changed since it was read.
func (r *Registry) Update(ctx context.Context, spec domain.GroupSpec, expectedVersion int64) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	input := &iot.UpdateThingGroupInput{
		ThingGroupName:       aws.String(spec.Name),
		ThingGroupProperties: propertiesFor(spec),
	}
	if expectedVersion > 0 {
		input.ExpectedVersion = aws.Int64(expectedVersion)
	}
	if _, err := r.client.UpdateThingGroup(ctx, input); err != nil {
		return r.errorHandler.Handle(resourceType, spec.Name, err, ctx)
	}
	r.debugf(ctx, "Updated thing group %s in %s", spec.Name, r.region)
	return nil
}

func (r *Registry) Delete(ctx context.Context, name string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	if _, err := r.client.DeleteThingGroup(ctx, &iot.DeleteThingGroupInput{
		ThingGroupName: aws.String(name),
	}); err != nil {
		return r.errorHandler.Handle(resourceType, name, err, ctx)
	}
	r.debugf(ctx, "Deleted thing group %s in %s", name, r.region)
	return nil
}
