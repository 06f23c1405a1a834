package domain

// SourceContext describes where a provisioning attempt originates. Values are
// taken from the provisioning template ARN, not from the device.
type SourceContext struct {
	AccountID    string `validate:"omitempty,numeric,len=12"`
	Region       string `validate:"omitempty,max=32"`
	TemplateName string `validate:"omitempty,max=36"`
}

// ProvisioningRequest is one device registration attempt as seen by the
// admission evaluator. It is built per invocation and never mutated.
type ProvisioningRequest struct {
	ClaimIdentity      string            `validate:"required,max=128,printascii"`
	Parameters         map[string]string `validate:"max=64,dive,keys,required,max=128,printascii,endkeys,max=2048"`
	Source             SourceContext
	ClaimCertificateID string `validate:"omitempty,max=64"`
	CertificateID      string `validate:"omitempty,max=64"`
	TemplateARN        string `validate:"omitempty,max=2048"`
	ClientID           string `validate:"omitempty,max=128"`
}

// Parameter returns the requested value for key and whether it was supplied.
func (r *ProvisioningRequest) Parameter(key string) (string, bool) {
	v, ok := r.Parameters[key]
	return v, ok
}

// AdmissionVerdict is either an allow carrying overrides and the derived
// resource name, or a deny carrying a machine-readable reason.
type AdmissionVerdict struct {
	Allowed            bool
	ParameterOverrides map[string]string
	ResourceName       string
	Reason             string
	// DeniedBy names the policy predicate that rejected the request, if any.
	DeniedBy string
}

func Allow(resourceName string, overrides map[string]string) AdmissionVerdict {
	if overrides == nil {
		overrides = map[string]string{}
	}
	return AdmissionVerdict{
		Allowed:            true,
		ParameterOverrides: overrides,
		ResourceName:       resourceName,
	}
}

func Deny(reason string) AdmissionVerdict {
	return AdmissionVerdict{Reason: reason}
}

func DenyBy(predicate, reason string) AdmissionVerdict {
	return AdmissionVerdict{Reason: reason, DeniedBy: predicate}
}

// Deny reasons produced outside of policy predicates.
const (
	ReasonInvalidRequest   = "invalid_request"
	ReasonMalformedPayload = "malformed_payload"
	ReasonTimeout          = "timeout"
	ReasonInternalError    = "internal_error"
)
