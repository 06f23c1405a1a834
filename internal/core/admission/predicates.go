package admission

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

// Deny reasons emitted by the built-in predicates.
const (
	ReasonClaimRejected       = "claim_identity_rejected"
	ReasonClaimDenied         = "claim_identity_denied"
	ReasonParameterNotAllowed = "parameter_not_allowed"
	ReasonMissingParameter    = "missing_parameter"
	ReasonParameterMismatch   = "parameter_mismatch"
	ReasonAccountNotAllowed   = "source_account_not_allowed"
	ReasonRegionNotAllowed    = "source_region_not_allowed"
)

type predicateFunc struct {
	name string
	fn   func(req *domain.ProvisioningRequest) error
}

func (p predicateFunc) Name() string                                { return p.name }
func (p predicateFunc) Check(req *domain.ProvisioningRequest) error { return p.fn(req) }

// PredicateFunc adapts a plain function into a Predicate so deployers can add
// checks that the configuration file cannot express.
func PredicateFunc(name string, fn func(req *domain.ProvisioningRequest) error) ports.Predicate {
	return predicateFunc{name: name, fn: fn}
}

func violation(reason, detail string) error {
	return &ports.PolicyViolation{Reason: reason, Detail: detail}
}

func ClaimPattern(pattern string) (ports.Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, fmt.Sprintf("invalid claim pattern %q", pattern))
	}
	return PredicateFunc("claim_pattern", func(req *domain.ProvisioningRequest) error {
		if !re.MatchString(req.ClaimIdentity) {
			return violation(ReasonClaimRejected, "")
		}
		return nil
	}), nil
}

func DeniedClaims(claims []string) ports.Predicate {
	denied := toSet(claims)
	return PredicateFunc("denied_claims", func(req *domain.ProvisioningRequest) error {
		if _, found := denied[req.ClaimIdentity]; found {
			return violation(ReasonClaimDenied, "")
		}
		return nil
	})
}

// AllowedParameters rejects any requested key outside keys. The offending key
// reported is the lexically first so repeated attempts deny identically.
func AllowedParameters(keys []string) ports.Predicate {
	allowed := toSet(keys)
	return PredicateFunc("allowed_parameters", func(req *domain.ProvisioningRequest) error {
		requested := make([]string, 0, len(req.Parameters))
		for k := range req.Parameters {
			requested = append(requested, k)
		}
		sort.Strings(requested)
		for _, k := range requested {
			if _, ok := allowed[k]; !ok {
				return violation(ReasonParameterNotAllowed, k)
			}
		}
		return nil
	})
}

func Parameter(rule ParameterRule) (ports.Predicate, error) {
	var re *regexp.Regexp
	if rule.Pattern != "" {
		compiled, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfigValidation, fmt.Sprintf("invalid pattern for parameter %q", rule.Name))
		}
		re = compiled
	}
	return PredicateFunc("parameter:"+rule.Name, func(req *domain.ProvisioningRequest) error {
		value, ok := req.Parameter(rule.Name)
		if !ok {
			if rule.Required {
				return violation(ReasonMissingParameter, rule.Name)
			}
			return nil
		}
		if rule.Equals != "" && value != rule.Equals {
			return violation(ReasonParameterMismatch, rule.Name)
		}
		if re != nil && !re.MatchString(value) {
			return violation(ReasonParameterMismatch, rule.Name)
		}
		return nil
	}), nil
}

func AllowedAccounts(accounts []string) ports.Predicate {
	allowed := toSet(accounts)
	return PredicateFunc("allowed_accounts", func(req *domain.ProvisioningRequest) error {
		if _, ok := allowed[req.Source.AccountID]; !ok {
			return violation(ReasonAccountNotAllowed, req.Source.AccountID)
		}
		return nil
	})
}

func AllowedRegions(regions []string) ports.Predicate {
	allowed := toSet(regions)
	return PredicateFunc("allowed_regions", func(req *domain.ProvisioningRequest) error {
		if _, ok := allowed[req.Source.Region]; !ok {
			return violation(ReasonRegionNotAllowed, req.Source.Region)
		}
		return nil
	})
}

// BuildPredicates turns the policy section into predicates. Checks on the
// claim come first, then parameters, then source context.
func BuildPredicates(policy Policy) ([]ports.Predicate, error) {
	var predicates []ports.Predicate

	if policy.ClaimPattern != "" {
		p, err := ClaimPattern(policy.ClaimPattern)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	if len(policy.DeniedClaims) > 0 {
		predicates = append(predicates, DeniedClaims(policy.DeniedClaims))
	}
	if len(policy.AllowedParameters) > 0 {
		predicates = append(predicates, AllowedParameters(policy.AllowedParameters))
	}
	for _, rule := range policy.Parameters {
		p, err := Parameter(rule)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	if len(policy.AllowedAccounts) > 0 {
		predicates = append(predicates, AllowedAccounts(policy.AllowedAccounts))
	}
	if len(policy.AllowedRegions) > 0 {
		predicates = append(predicates, AllowedRegions(policy.AllowedRegions))
	}
	return predicates, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
