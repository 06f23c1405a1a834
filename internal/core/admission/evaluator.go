package admission

import (
	"context"
	stderrs "errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/validation"
)

// Evaluator decides admission for provisioning requests. It holds only
// immutable state built at construction and may be shared across goroutines.
type Evaluator struct {
	validate      *validator.Validate
	predicates    []ports.Predicate
	namer         Namer
	nameParameter string
	overrides     map[string]string
}

var _ ports.AdmissionEvaluator = (*Evaluator)(nil)

// NewEvaluator builds an evaluator from cfg. Extra predicates run after the
// configured ones.
func NewEvaluator(cfg Config, extra ...ports.Predicate) (*Evaluator, error) {
	if cfg.NameParameter == "" {
		cfg.NameParameter = DefaultNameParameter
	}

	predicates, err := BuildPredicates(cfg.Policy)
	if err != nil {
		return nil, err
	}
	for _, p := range extra {
		if p == nil {
			return nil, errors.New(errors.CodeConfigValidation, "nil admission predicate")
		}
		predicates = append(predicates, p)
	}

	overrides := make(map[string]string, len(cfg.Overrides)+1)
	for _, o := range cfg.Overrides {
		if o.Name == cfg.NameParameter {
			return nil, errors.NewUserFacing(errors.CodeConfigValidation,
				fmt.Sprintf("override %q collides with the derived name parameter", o.Name),
				"Remove the override or change admission.name_parameter.")
		}
		overrides[o.Name] = o.Value
	}

	return &Evaluator{
		validate:      validation.New(),
		predicates:    predicates,
		namer:         Namer{Prefix: cfg.NamePrefix},
		nameParameter: cfg.NameParameter,
		overrides:     overrides,
	}, nil
}

// Predicates returns the names of the active predicates in evaluation order.
func (e *Evaluator) Predicates() []string {
	names := make([]string, len(e.predicates))
	for i, p := range e.predicates {
		names[i] = p.Name()
	}
	return names
}

// Evaluate returns a verdict for req. Policy failures are verdicts, not
// errors; an error means the request could not be evaluated at all.
func (e *Evaluator) Evaluate(ctx context.Context, req *domain.ProvisioningRequest) (domain.AdmissionVerdict, error) {
	if req == nil {
		return domain.AdmissionVerdict{}, errors.New(errors.CodeStructural, "provisioning request is nil")
	}

	if err := e.validate.StructCtx(ctx, req); err != nil {
		var invalid *validator.InvalidValidationError
		if stderrs.As(err, &invalid) {
			return domain.AdmissionVerdict{}, errors.Wrap(err, errors.CodeStructural, "provisioning request cannot be validated")
		}
		return domain.DenyBy("validation", domain.ReasonInvalidRequest), nil
	}

	for _, p := range e.predicates {
		if err := ctx.Err(); err != nil {
			return domain.AdmissionVerdict{}, errors.Wrap(err, errors.CodeTimeout, "admission evaluation interrupted")
		}
		err := p.Check(req)
		if err == nil {
			continue
		}
		var v *ports.PolicyViolation
		if stderrs.As(err, &v) {
			return domain.DenyBy(p.Name(), v.Reason), nil
		}
		return domain.AdmissionVerdict{}, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("predicate %s failed", p.Name()))
	}

	name := e.namer.NameFor(req.ClaimIdentity)
	overrides := make(map[string]string, len(e.overrides)+1)
	for k, v := range e.overrides {
		overrides[k] = v
	}
	overrides[e.nameParameter] = name

	return domain.Allow(name, overrides), nil
}
