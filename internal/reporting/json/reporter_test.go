package json

import (
	"bytes"
	"context"
	stderrs "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/log"
)

func TestReportVerdicts(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewReporter(Config{Compact: true}, log.NewNop(), WithWriter(&buf))
	require.NoError(t, err)

	err = r.ReportVerdicts(context.Background(), []ports.VerdictReport{
		{Source: "a", Verdict: domain.Allow("iot_a", map[string]string{"ThingName": "iot_a"})},
		{Source: "b", Verdict: domain.DenyBy("denied_claims", "claim_denied")},
		{Source: "c", Error: stderrs.New("boom")},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"summary": {"total": 3, "allowed": 1, "denied": 1, "errors": 1},
		"results": [
			{"source": "a", "allowProvisioning": true, "parameterOverrides": {"ThingName": "iot_a"}},
			{"source": "b", "allowProvisioning": false, "reason": "claim_denied", "denied_by": "denied_claims"},
			{"source": "c", "allowProvisioning": false, "error_message": "boom"}
		]
	}`, buf.String())
}

func TestReportLifecycle(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewReporter(Config{}, log.NewNop(), WithWriter(&buf))
	require.NoError(t, err)

	event := &domain.LifecycleEvent{RequestType: domain.RequestCreate, LogicalResourceID: "ThingGroup"}
	result := domain.Succeeded("fleet", map[string]string{domain.DataKeyStatus: domain.OutcomeCreated})
	require.NoError(t, r.ReportLifecycle(context.Background(), event, result))

	assert.JSONEq(t, `{
		"request_type": "Create",
		"logical_resource_id": "ThingGroup",
		"status": "SUCCESS",
		"physical_resource_id": "fleet",
		"data": {"Status": "Created"}
	}`, buf.String())
}

func TestReportVerdicts_Cancelled(t *testing.T) {
	r, err := NewReporter(Config{}, log.NewNop(), WithWriter(&bytes.Buffer{}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = r.ReportVerdicts(ctx, []ports.VerdictReport{{Source: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
