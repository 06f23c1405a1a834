package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	apperrors "github.com/olusolaa/fleet-provisioner/internal/errors"
)

func regionPolicyConfig() Config {
	cfg := DefaultConfig()
	cfg.Policy.Parameters = []ParameterRule{{Name: "region", Required: true, Equals: "us-east-1"}}
	return cfg
}

func TestEvaluate_AllowsMatchingRegion(t *testing.T) {
	ev, err := NewEvaluator(regionPolicyConfig())
	require.NoError(t, err)

	verdict, err := ev.Evaluate(context.Background(), &domain.ProvisioningRequest{
		ClaimIdentity: "dev-123",
		Parameters:    map[string]string{"region": "us-east-1"},
	})

	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, Namer{Prefix: DefaultNamePrefix}.NameFor("dev-123"), verdict.ResourceName)
	assert.Equal(t, "iot_dev-123", verdict.ResourceName)
	assert.Equal(t, map[string]string{DefaultNameParameter: "iot_dev-123"}, verdict.ParameterOverrides)
	assert.Empty(t, verdict.Reason)
}

func TestEvaluate_SameClaimSameName(t *testing.T) {
	ev, err := NewEvaluator(regionPolicyConfig())
	require.NoError(t, err)

	req := func() *domain.ProvisioningRequest {
		return &domain.ProvisioningRequest{
			ClaimIdentity: "dev-123",
			Parameters:    map[string]string{"region": "us-east-1"},
		}
	}

	first, err := ev.Evaluate(context.Background(), req())
	require.NoError(t, err)
	second, err := ev.Evaluate(context.Background(), req())
	require.NoError(t, err)

	assert.Equal(t, first.ResourceName, second.ResourceName)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("verdicts differ between attempts (-first +second):\n%s", diff)
	}
}

func TestEvaluate_DeniesRegionMismatch(t *testing.T) {
	ev, err := NewEvaluator(regionPolicyConfig())
	require.NoError(t, err)

	verdict, err := ev.Evaluate(context.Background(), &domain.ProvisioningRequest{
		ClaimIdentity: "dev-123",
		Parameters:    map[string]string{"region": "eu-west-1"},
	})

	require.NoError(t, err, "policy failure must not be an error")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonParameterMismatch, verdict.Reason)
	assert.Equal(t, "parameter:region", verdict.DeniedBy)
	assert.Empty(t, verdict.ResourceName)
	assert.Nil(t, verdict.ParameterOverrides)
}

func TestEvaluate_MalformedRequests(t *testing.T) {
	ev, err := NewEvaluator(DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *domain.ProvisioningRequest
	}{
		{name: "empty claim", req: &domain.ProvisioningRequest{}},
		{name: "claim too long", req: &domain.ProvisioningRequest{ClaimIdentity: strings.Repeat("a", 129)}},
		{name: "non printable claim", req: &domain.ProvisioningRequest{ClaimIdentity: "dev\x00123"}},
		{name: "empty parameter key", req: &domain.ProvisioningRequest{ClaimIdentity: "dev-1", Parameters: map[string]string{"": "x"}}},
		{name: "bad account", req: &domain.ProvisioningRequest{ClaimIdentity: "dev-1", Source: domain.SourceContext{AccountID: "12ab"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict, err := ev.Evaluate(context.Background(), tc.req)
			require.NoError(t, err)
			assert.False(t, verdict.Allowed)
			assert.Equal(t, domain.ReasonInvalidRequest, verdict.Reason)
		})
	}
}

func TestEvaluate_NilRequestIsTerminalError(t *testing.T) {
	ev, err := NewEvaluator(DefaultConfig())
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), nil)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeStructural))
}

func TestEvaluate_PredicatesRunInOrderAndFirstFailureWins(t *testing.T) {
	var calls []string
	record := func(name string, fail bool) func(*domain.ProvisioningRequest) error {
		return func(*domain.ProvisioningRequest) error {
			calls = append(calls, name)
			if fail {
				return violation("custom_"+name, "")
			}
			return nil
		}
	}

	ev, err := NewEvaluator(DefaultConfig(),
		PredicateFunc("first", record("first", false)),
		PredicateFunc("second", record("second", true)),
		PredicateFunc("third", record("third", true)),
	)
	require.NoError(t, err)

	verdict, err := ev.Evaluate(context.Background(), &domain.ProvisioningRequest{ClaimIdentity: "dev-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, "custom_second", verdict.Reason)
	assert.Equal(t, "second", verdict.DeniedBy)
}

func TestEvaluate_PredicateFaultIsError(t *testing.T) {
	ev, err := NewEvaluator(DefaultConfig(), PredicateFunc("broken", func(*domain.ProvisioningRequest) error {
		return errors.New("boom")
	}))
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), &domain.ProvisioningRequest{ClaimIdentity: "dev-1"})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInternal))
}

func TestEvaluate_CancelledContext(t *testing.T) {
	ev, err := NewEvaluator(regionPolicyConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ev.Evaluate(ctx, &domain.ProvisioningRequest{
		ClaimIdentity: "dev-1",
		Parameters:    map[string]string{"region": "us-east-1"},
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeTimeout))
}

func TestEvaluate_StaticOverridesAreCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Overrides = []Override{{Name: "ThingGroupName", Value: "fleet-provisioning-group"}}
	ev, err := NewEvaluator(cfg)
	require.NoError(t, err)

	first, err := ev.Evaluate(context.Background(), &domain.ProvisioningRequest{ClaimIdentity: "dev-1"})
	require.NoError(t, err)
	first.ParameterOverrides["ThingGroupName"] = "tampered"

	second, err := ev.Evaluate(context.Background(), &domain.ProvisioningRequest{ClaimIdentity: "dev-2"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"ThingGroupName": "fleet-provisioning-group",
		"ThingName":      "iot_dev-2",
	}, second.ParameterOverrides)
}

func TestNewEvaluator_RejectsOverrideOfNameParameter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Overrides = []Override{{Name: DefaultNameParameter, Value: "fixed"}}

	_, err := NewEvaluator(cfg)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))
}

func TestNewEvaluator_InvalidPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.ClaimPattern = "("

	_, err := NewEvaluator(cfg)

	require.Error(t, err)
}

func TestEvaluate_ConcurrentCallsAgree(t *testing.T) {
	ev, err := NewEvaluator(regionPolicyConfig())
	require.NoError(t, err)

	const workers = 32
	names := make([]string, workers)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			v, err := ev.Evaluate(ctx, &domain.ProvisioningRequest{
				ClaimIdentity: fmt.Sprintf("dev-%d", i%4),
				Parameters:    map[string]string{"region": "us-east-1"},
			})
			if err != nil {
				return err
			}
			names[i] = v.ResourceName
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := 4; i < workers; i++ {
		assert.Equal(t, names[i%4], names[i])
	}
}
