package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/log"
)

func TestNew_RangeHandling(t *testing.T) {
	logger := log.NewNop()

	assert.Equal(t, DefaultRPS, New(0, logger).RPS())
	assert.Equal(t, DefaultRPS, New(500, logger).RPS())
	assert.Equal(t, DefaultRPS, New(-3, nil).RPS())
	assert.Equal(t, 42, New(42, logger).RPS())
}

func TestWait_HonoursContext(t *testing.T) {
	l := New(MinRPS, log.NewNop())
	require.NoError(t, l.Wait(context.Background(), nil), "first token comes from the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, l.Wait(ctx, log.NewNop()))
}
