package hook

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/core/admission"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/log"
	"github.com/olusolaa/fleet-provisioner/mocks"
)

const validPayload = `{
	"claimCertificateId": "claim-cert",
	"certificateId": "device-cert",
	"certificatePem": "-----BEGIN CERTIFICATE-----",
	"templateArn": "arn:aws:iot:us-east-1:123456789012:provisioningtemplate/FleetTemplate",
	"clientId": "dev-123",
	"parameters": {"region": "us-east-1", "SerialNumber": "SN0001"}
}`

func newEndpoint(t *testing.T, cfg Config) *Endpoint {
	t.Helper()
	acfg := admission.DefaultConfig()
	acfg.Policy.Parameters = []admission.ParameterRule{{Name: "region", Required: true, Equals: "us-east-1"}}
	ev, err := admission.NewEvaluator(acfg)
	require.NoError(t, err)
	e, err := NewEndpoint(ev, cfg, log.NewNop())
	require.NoError(t, err)
	return e
}

func TestHandle_Allow(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	resp := e.Handle(context.Background(), []byte(validPayload))

	assert.True(t, resp.AllowProvisioning)
	assert.Equal(t, "iot_dev-123", resp.ParameterOverrides["ThingName"])
	assert.Empty(t, resp.Reason)
}

func TestHandle_SamePayloadSameResponse(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	first := e.Handle(context.Background(), []byte(validPayload))
	second := e.Handle(context.Background(), []byte(validPayload))

	assert.Equal(t, first, second)
}

func TestHandle_PolicyDeny(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	resp := e.Handle(context.Background(), []byte(`{"clientId":"dev-123","parameters":{"region":"eu-west-1"}}`))

	assert.False(t, resp.AllowProvisioning)
	assert.Nil(t, resp.ParameterOverrides)
	assert.Equal(t, admission.ReasonParameterMismatch, resp.Reason)
}

func TestVerdict_KeepsDecidingPredicate(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	verdict := e.Verdict(context.Background(), []byte(`{"clientId":"dev-123","parameters":{"region":"eu-west-1"}}`))

	assert.False(t, verdict.Allowed)
	assert.Equal(t, "parameter:region", verdict.DeniedBy)
	assert.Equal(t, admission.ReasonParameterMismatch, verdict.Reason)
}

func TestHandle_MalformedPayloads(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	for name, raw := range map[string]string{
		"empty":           "",
		"null":            "null",
		"not json":        "{clientId:",
		"wrong types":     `{"clientId": 7, "parameters": []}`,
		"bad template":    `{"clientId":"dev-1","templateArn":"not-an-arn"}`,
		"parameter array": `{"clientId":"dev-1","parameters":["a"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := e.Handle(context.Background(), []byte(raw))
			assert.False(t, resp.AllowProvisioning)
			assert.Equal(t, domain.ReasonMalformedPayload, resp.Reason)
		})
	}
}

func TestHandle_MissingIdentityIsInvalidRequest(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	resp := e.Handle(context.Background(), []byte(`{"parameters":{"region":"us-east-1"}}`))

	assert.False(t, resp.AllowProvisioning)
	assert.Equal(t, domain.ReasonInvalidRequest, resp.Reason)
}

func TestHandle_IdentityFromParameter(t *testing.T) {
	e := newEndpoint(t, Config{Timeout: time.Second, IdentitySource: "parameter:SerialNumber"})

	resp := e.Handle(context.Background(), []byte(validPayload))

	require.True(t, resp.AllowProvisioning)
	assert.Equal(t, "iot_SN0001", resp.ParameterOverrides["ThingName"])
}

func TestHandle_SourceFromTemplateARN(t *testing.T) {
	ev := new(mocks.MockAdmissionEvaluator)
	ev.On("Evaluate", mock.Anything, mock.MatchedBy(func(req *domain.ProvisioningRequest) bool {
		return req.Source == domain.SourceContext{AccountID: "123456789012", Region: "us-east-1", TemplateName: "FleetTemplate"} &&
			req.ClaimCertificateID == "claim-cert" &&
			req.ClaimIdentity == "dev-123"
	})).Return(domain.Allow("iot_dev-123", map[string]string{"ThingName": "iot_dev-123"}), nil).Once()
	e, err := NewEndpoint(ev, DefaultConfig(), log.NewNop())
	require.NoError(t, err)

	resp := e.Handle(context.Background(), []byte(validPayload))

	assert.True(t, resp.AllowProvisioning)
	ev.AssertExpectations(t)
}

func TestHandle_Timeout(t *testing.T) {
	ev := new(mocks.MockAdmissionEvaluator)
	release := make(chan struct{})
	defer close(release)
	ev.On("Evaluate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(domain.Allow("late", nil), nil)
	e, err := NewEndpoint(ev, Config{Timeout: 20 * time.Millisecond, IdentitySource: IdentityClientID}, log.NewNop())
	require.NoError(t, err)

	start := time.Now()
	resp := e.Handle(context.Background(), []byte(validPayload))

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, resp.AllowProvisioning)
	assert.Equal(t, domain.ReasonTimeout, resp.Reason)
}

func TestHandle_EvaluatorFaults(t *testing.T) {
	tests := []struct {
		name  string
		setup func(ev *mocks.MockAdmissionEvaluator)
	}{
		{
			name: "terminal error",
			setup: func(ev *mocks.MockAdmissionEvaluator) {
				ev.On("Evaluate", mock.Anything, mock.Anything).
					Return(domain.AdmissionVerdict{}, errors.New(errors.CodeInternal, "predicate exploded"))
			},
		},
		{
			name: "panic",
			setup: func(ev *mocks.MockAdmissionEvaluator) {
				ev.On("Evaluate", mock.Anything, mock.Anything).
					Run(func(mock.Arguments) { panic("boom") }).
					Return(domain.AdmissionVerdict{}, nil)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := new(mocks.MockAdmissionEvaluator)
			tc.setup(ev)
			e, err := NewEndpoint(ev, DefaultConfig(), log.NewNop())
			require.NoError(t, err)

			resp := e.Handle(context.Background(), []byte(validPayload))

			assert.False(t, resp.AllowProvisioning)
			assert.Equal(t, domain.ReasonInternalError, resp.Reason)
		})
	}
}

func TestHandleRequest_Nil(t *testing.T) {
	e := newEndpoint(t, DefaultConfig())

	resp := e.HandleRequest(context.Background(), nil)
	assert.Equal(t, domain.ReasonMalformedPayload, resp.Reason)

	resp = e.HandleRequest(context.Background(), &events.IoTPreProvisionHookRequest{
		ClientID:   "dev-123",
		Parameters: map[string]string{"region": "us-east-1"},
	})
	assert.True(t, resp.AllowProvisioning)
}

func TestNewEndpoint_Validation(t *testing.T) {
	_, err := NewEndpoint(nil, DefaultConfig(), log.NewNop())
	assert.Error(t, err)

	ev := new(mocks.MockAdmissionEvaluator)
	for _, source := range []string{"serial", "parameter:"} {
		_, err = NewEndpoint(ev, Config{IdentitySource: source}, log.NewNop())
		assert.True(t, errors.Is(err, errors.CodeConfigValidation), source)
	}
}
