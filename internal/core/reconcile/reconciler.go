package reconcile

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/validation"
)

// Reconciler drives a thing group through Create, Update and Delete events.
// It keeps no state between calls: every decision is taken from the live
// registry, so repeated or concurrent deliveries of one event converge.
type Reconciler struct {
	registries ports.GroupRegistryFactory
	cfg        Config
	logger     ports.Logger
}

var _ ports.Reconciler = (*Reconciler)(nil)

func New(registries ports.GroupRegistryFactory, cfg Config, logger ports.Logger) (*Reconciler, error) {
	if registries == nil {
		return nil, errors.New(errors.CodeConfigValidation, "group registry factory cannot be nil")
	}
	if logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil for reconciler")
	}
	defaults := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = defaults.PollAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	return &Reconciler{registries: registries, cfg: cfg, logger: logger}, nil
}

func (r *Reconciler) Create(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error) {
	if err := checkEvent(event); err != nil {
		return domain.LifecycleResult{}, err
	}
	reg, err := r.registries.ForRegion(ctx, event.Properties.Region)
	if err != nil {
		return domain.LifecycleResult{}, err
	}
	return r.ensure(ctx, reg, event, r.eventLogger(event))
}

// Update re-applies the desired properties. A changed name replaces the
// resource: the new group is ensured and its name returned as the new
// physical ID, which makes the stack delete the old one afterwards.
func (r *Reconciler) Update(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error) {
	if err := checkEvent(event); err != nil {
		return domain.LifecycleResult{}, err
	}
	logger := r.eventLogger(event)

	if old := event.OldProperties; old != nil && old.Region != event.Properties.Region &&
		event.PhysicalResourceID == event.Properties.ThingGroupName {
		return domain.LifecycleResult{}, errors.NewUserFacing(errors.CodeValidation,
			fmt.Sprintf("regionName changed from %q to %q without renaming the thing group", old.Region, event.Properties.Region),
			"Change thingGroupName together with regionName so the group is replaced.")
	}

	switch physical := event.PhysicalResourceID; {
	case physical == "":
		logger.Warnf(ctx, "Update received without a physical ID, treating as create")
	case physical != event.Properties.ThingGroupName:
		logger.Infof(ctx, "Thing group renamed from %s to %s, replacing", physical, event.Properties.ThingGroupName)
	}

	reg, err := r.registries.ForRegion(ctx, event.Properties.Region)
	if err != nil {
		return domain.LifecycleResult{}, err
	}
	return r.ensure(ctx, reg, event, logger)
}

// Delete removes the group named by the physical ID when it belongs to this
// stack or to no stack. An absent group, or one owned elsewhere, is reported
// as success.
func (r *Reconciler) Delete(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error) {
	if event == nil {
		return domain.LifecycleResult{}, errors.New(errors.CodeStructural, "lifecycle event is nil")
	}
	name := event.PhysicalResourceID
	if name == "" {
		name = event.Properties.ThingGroupName
	}
	logger := r.eventLogger(event).WithFields(map[string]any{"thing_group": name})
	if name == "" {
		logger.Infof(ctx, "Delete without a resource name, nothing to remove")
		return domain.Succeeded(name, map[string]string{domain.DataKeyStatus: domain.OutcomeAlreadyAbsent}), nil
	}
	if !validation.IsIoTName(name) {
		// Physical IDs handed out for failed creates need not be group names.
		logger.Infof(ctx, "Physical ID is not a thing group name, nothing to remove")
		return absent(name), nil
	}

	reg, err := r.registries.ForRegion(ctx, deleteRegion(event))
	if err != nil {
		return domain.LifecycleResult{}, err
	}

	live, err := r.describe(ctx, reg, name)
	if errors.Is(err, errors.CodeResourceNotFound) {
		logger.Infof(ctx, "Thing group already absent")
		return absent(name), nil
	}
	if err != nil {
		return domain.LifecycleResult{}, err
	}

	if err := r.checkOwnership(live, event.Owner()); err != nil {
		logger.Warnf(ctx, "Leaving thing group in place: %s", errors.Reason(err))
		return domain.Succeeded(name, live.Data(domain.OutcomeNotOwned)), nil
	}

	err = r.call(ctx, func(ctx context.Context) error { return reg.Delete(ctx, name) })
	if errors.Is(err, errors.CodeResourceNotFound) {
		logger.Infof(ctx, "Thing group disappeared before delete")
		return absent(name), nil
	}
	if err != nil {
		return domain.LifecycleResult{}, err
	}

	if err := r.awaitAbsent(ctx, reg, name); err != nil {
		return domain.LifecycleResult{}, err
	}
	logger.Infof(ctx, "Thing group deleted")
	return domain.Succeeded(name, live.Data(domain.OutcomeDeleted)), nil
}

// ensure makes the desired group exist with the desired properties.
func (r *Reconciler) ensure(ctx context.Context, reg ports.GroupRegistry, event *domain.LifecycleEvent, logger ports.Logger) (domain.LifecycleResult, error) {
	spec := desiredSpec(event)
	owner := event.Owner()
	logger = logger.WithFields(map[string]any{"thing_group": spec.Name})

	live, err := r.describe(ctx, reg, spec.Name)
	if err == nil {
		return r.converge(ctx, reg, live, spec, owner, logger)
	}
	if !errors.Is(err, errors.CodeResourceNotFound) {
		return domain.LifecycleResult{}, err
	}

	var created *domain.ThingGroup
	err = r.call(ctx, func(ctx context.Context) error {
		var cerr error
		created, cerr = reg.Create(ctx, spec)
		return cerr
	})
	if errors.Is(err, errors.CodeResourceAlreadyExists) {
		logger.Infof(ctx, "Thing group created concurrently, converging")
		live, err = r.describe(ctx, reg, spec.Name)
		if err != nil {
			return domain.LifecycleResult{}, err
		}
		return r.converge(ctx, reg, live, spec, owner, logger)
	}
	if err != nil {
		return domain.LifecycleResult{}, err
	}

	visible, err := r.awaitPresent(ctx, reg, spec.Name)
	if err != nil {
		return domain.LifecycleResult{}, err
	}
	if visible.ARN == "" {
		visible = created
	}
	logger.Infof(ctx, "Thing group created")
	return domain.Succeeded(spec.Name, visible.Data(domain.OutcomeCreated)), nil
}

func (r *Reconciler) converge(ctx context.Context, reg ports.GroupRegistry, live *domain.ThingGroup, spec domain.GroupSpec, owner string, logger ports.Logger) (domain.LifecycleResult, error) {
	if err := r.checkOwnership(live, owner); err != nil {
		return domain.LifecycleResult{}, err
	}

	if inSync(live, spec) {
		logger.Debugf(ctx, "Thing group already matches desired properties")
		return domain.Succeeded(live.Name, live.Data(domain.OutcomeUnchanged)), nil
	}
	logger.Debugf(ctx, "Thing group drift (-live +desired):\n%s", diff(live, spec))

	if err := r.call(ctx, func(ctx context.Context) error {
		return reg.Update(ctx, spec, live.Version)
	}); err != nil {
		return domain.LifecycleResult{}, err
	}

	updated := *live
	if spec.Description != "" {
		updated.Description = spec.Description
	}
	updated.Attributes = spec.Attributes
	logger.Infof(ctx, "Thing group properties updated")
	return domain.Succeeded(live.Name, updated.Data(domain.OutcomeUpdated)), nil
}

// checkOwnership admits groups owned by owner and, unless refused by
// config, groups no stack has claimed. Converging an unowned group writes
// the owner attribute, so it is adopted.
func (r *Reconciler) checkOwnership(live *domain.ThingGroup, owner string) error {
	current := live.Owner()
	switch {
	case current == owner:
		return nil
	case current == "" && !r.cfg.RefuseUnowned:
		return nil
	case current == "":
		return errors.NewUserFacing(errors.CodeInvariantViolation,
			fmt.Sprintf("thing group %s exists but is not managed by any stack", live.Name),
			"Choose another thingGroupName or disable reconcile.refuse_unowned.")
	default:
		return errors.NewUserFacing(errors.CodeInvariantViolation,
			fmt.Sprintf("thing group %s is managed by %s", live.Name, current),
			"Choose a thingGroupName that is not used by another stack.")
	}
}

func (r *Reconciler) describe(ctx context.Context, reg ports.GroupRegistry, name string) (*domain.ThingGroup, error) {
	var group *domain.ThingGroup
	err := r.call(ctx, func(ctx context.Context) error {
		var derr error
		group, derr = reg.Describe(ctx, name)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// call runs fn under the per-call timeout. A deadline hit by the registry
// call alone is reported as a timeout.
func (r *Reconciler) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	err := fn(callCtx)
	if err != nil && callCtx.Err() != nil && !errors.Is(err, errors.CodeTimeout) {
		return errors.Wrap(callCtx.Err(), errors.CodeTimeout, "registry call exceeded its timeout")
	}
	return err
}

func (r *Reconciler) eventLogger(event *domain.LifecycleEvent) ports.Logger {
	return r.logger.WithFields(map[string]any{
		"request_type":        event.RequestType.String(),
		"request_id":          event.RequestID,
		"logical_resource_id": event.LogicalResourceID,
	})
}

func checkEvent(event *domain.LifecycleEvent) error {
	if event == nil {
		return errors.New(errors.CodeStructural, "lifecycle event is nil")
	}
	if event.Properties.ThingGroupName == "" {
		return errors.NewUserFacing(errors.CodeValidation, "thingGroupName is required", "Set the thingGroupName resource property.")
	}
	return nil
}

// desiredSpec is the group as this event wants it, including the owner
// attribute that marks it as belonging to the stack.
func desiredSpec(event *domain.LifecycleEvent) domain.GroupSpec {
	attrs := make(map[string]string, len(event.Properties.Attributes)+1)
	for k, v := range event.Properties.Attributes {
		attrs[k] = v
	}
	if owner := event.Owner(); owner != "" {
		attrs[domain.AttributeManagedBy] = owner
	} else {
		delete(attrs, domain.AttributeManagedBy)
	}
	return domain.GroupSpec{
		Name:        event.Properties.ThingGroupName,
		Description: event.Properties.Description,
		Attributes:  attrs,
	}
}

// deleteRegion picks the registry region for Delete, whose properties may
// not have decoded: the event's region, then the previous one, then the
// region of the stack itself. Empty means the default region.
func deleteRegion(event *domain.LifecycleEvent) string {
	if event.Properties.Region != "" {
		return event.Properties.Region
	}
	if old := event.OldProperties; old != nil && old.Region != "" {
		return old.Region
	}
	if parsed, err := arn.Parse(event.StackID); err == nil {
		return parsed.Region
	}
	return ""
}

type groupState struct {
	Description string
	Attributes  map[string]string
}

// states returns the comparable live and desired state. An empty desired
// description is never sent to the registry, so it leaves the live one as is.
func states(live *domain.ThingGroup, spec domain.GroupSpec) (groupState, groupState) {
	desired := groupState{Description: spec.Description, Attributes: spec.Attributes}
	if desired.Description == "" {
		desired.Description = live.Description
	}
	return groupState{Description: live.Description, Attributes: live.Attributes}, desired
}

func inSync(live *domain.ThingGroup, spec domain.GroupSpec) bool {
	current, desired := states(live, spec)
	return cmp.Equal(current, desired, cmpopts.EquateEmpty())
}

func diff(live *domain.ThingGroup, spec domain.GroupSpec) string {
	current, desired := states(live, spec)
	return cmp.Diff(current, desired, cmpopts.EquateEmpty())
}

func absent(name string) domain.LifecycleResult {
	return domain.Succeeded(name, map[string]string{
		domain.DataKeyStatus:    domain.OutcomeAlreadyAbsent,
		domain.DataKeyGroupName: name,
	})
}
