package hook

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	jsoniter "github.com/json-iterator/go"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is the pre-provisioning hook reply. Reason is only set on deny
// and overrides only on allow.
type Response struct {
	AllowProvisioning  bool              `json:"allowProvisioning"`
	ParameterOverrides map[string]string `json:"parameterOverrides,omitempty"`
	Reason             string            `json:"reason,omitempty"`
}

func responseFor(verdict domain.AdmissionVerdict) Response {
	if verdict.Allowed {
		return Response{AllowProvisioning: true, ParameterOverrides: verdict.ParameterOverrides}
	}
	return Response{Reason: verdict.Reason}
}

// Decode parses a raw hook payload. Unknown fields are ignored.
func Decode(raw []byte) (*events.IoTPreProvisionHookRequest, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, errors.New(errors.CodeStructural, "empty provisioning hook payload")
	}
	var payload events.IoTPreProvisionHookRequest
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, errors.Wrap(err, errors.CodeStructural, "provisioning hook payload is not valid JSON")
	}
	return &payload, nil
}

// sourceFromTemplate derives the source account and region from the
// provisioning template ARN.
func sourceFromTemplate(templateARN string) (domain.SourceContext, error) {
	if templateARN == "" {
		return domain.SourceContext{}, nil
	}
	parsed, err := arn.Parse(templateARN)
	if err != nil {
		return domain.SourceContext{}, errors.Wrap(err, errors.CodeStructural, "templateArn is not a valid ARN")
	}
	name := parsed.Resource
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return domain.SourceContext{
		AccountID:    parsed.AccountID,
		Region:       parsed.Region,
		TemplateName: name,
	}, nil
}

func toRequest(payload *events.IoTPreProvisionHookRequest, identity identityFunc) (*domain.ProvisioningRequest, error) {
	source, err := sourceFromTemplate(payload.TemplateARN)
	if err != nil {
		return nil, err
	}
	params := make(map[string]string, len(payload.Parameters))
	for k, v := range payload.Parameters {
		params[k] = v
	}
	return &domain.ProvisioningRequest{
		ClaimIdentity:      identity(payload),
		Parameters:         params,
		Source:             source,
		ClaimCertificateID: payload.ClaimCertificateID,
		CertificateID:      payload.CertificateID,
		TemplateARN:        payload.TemplateARN,
		ClientID:           payload.ClientID,
	}, nil
}
