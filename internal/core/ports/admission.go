package ports

import (
	"context"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

type AdmissionEvaluator interface {
	Evaluate(ctx context.Context, req *domain.ProvisioningRequest) (domain.AdmissionVerdict, error)
}

// Predicate is one admission policy check. Check returns nil to pass, or a
// *PolicyViolation describing why the request is not admitted.
type Predicate interface {
	Name() string
	Check(req *domain.ProvisioningRequest) error
}

type PolicyViolation struct {
	Reason string
	Detail string
}

func (v *PolicyViolation) Error() string {
	if v.Detail == "" {
		return v.Reason
	}
	return v.Reason + ": " + v.Detail
}
