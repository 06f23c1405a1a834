package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

func TestRegistry_Lifecycle(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry("us-east-1", "123456789012")

	_, err := reg.Describe(ctx, "g1")
	assert.True(t, errors.Is(err, errors.CodeResourceNotFound))

	created, err := reg.Create(ctx, domain.GroupSpec{Name: "g1", Attributes: map[string]string{"a": "1"}})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iot:us-east-1:123456789012:thinggroup/g1", created.ARN)

	_, err = reg.Create(ctx, domain.GroupSpec{Name: "g1"})
	assert.True(t, errors.Is(err, errors.CodeResourceAlreadyExists))

	err = reg.Update(ctx, domain.GroupSpec{Name: "g1", Description: "d"}, 7)
	assert.True(t, errors.Is(err, errors.CodeTransientExternal), "stale version must conflict")
	require.NoError(t, reg.Update(ctx, domain.GroupSpec{Name: "g1", Description: "d"}, created.Version))

	got, ok := reg.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "d", got.Description)
	assert.Empty(t, got.Attributes)
	assert.Equal(t, int64(2), got.Version)

	require.NoError(t, reg.Delete(ctx, "g1"))
	assert.True(t, errors.Is(reg.Delete(ctx, "g1"), errors.CodeResourceNotFound))
	assert.Equal(t, 2, reg.Calls(OpDelete))
}

func TestRegistry_FaultsAndLag(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry("us-east-1", "123456789012")
	reg.Seed(domain.ThingGroup{Name: "g1"})

	reg.FailNext(OpDescribe, errors.New(errors.CodeTransientExternal, "throttled"))
	_, err := reg.Describe(ctx, "g1")
	assert.True(t, errors.Is(err, errors.CodeTransientExternal))

	reg.Lag("g1", 1)
	_, err = reg.Describe(ctx, "g1")
	assert.True(t, errors.Is(err, errors.CodeResourceNotFound))
	_, err = reg.Describe(ctx, "g1")
	assert.NoError(t, err)
}

func TestRegistry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRegistry("us-east-1", "1").Describe(ctx, "g1")

	assert.True(t, errors.Is(err, errors.CodeTimeout))
}

func TestFactory_DefaultRegion(t *testing.T) {
	f := NewFactory("eu-west-1", "123456789012")

	reg, err := f.ForRegion(context.Background(), "")
	require.NoError(t, err)

	assert.Same(t, f.Region("eu-west-1"), reg)
	assert.NotSame(t, f.Region("us-east-1"), reg)
}
