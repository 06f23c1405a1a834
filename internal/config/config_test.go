package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/core/admission"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

func load(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return Load(context.Background(), v)
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Validate(context.Background(), DefaultConfig()))
}

func TestLoad_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 25*time.Second, cfg.Hook.Timeout)
	assert.Equal(t, admission.DefaultNamePrefix, cfg.Admission.NamePrefix)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(t, `
settings:
  log_level: debug
  reporter: json
hook:
  timeout: 5s
  identity_source: parameter:SerialNumber
reconcile:
  call_timeout: 3s
  poll_attempts: 4
admission:
  name_prefix: dev_
  overrides:
    - name: Env
      value: prod
  policy:
    allowed_regions: [eu-west-1]
    parameters:
      - name: region
        required: true
        equals: eu-west-1
server:
  listen_addr: ":9090"
  registry: memory
  graceful_shutdown: 2s
`)
	require.NoError(t, err)

	assert.Equal(t, "debug", string(cfg.Settings.LogLevel))
	assert.Equal(t, "json", cfg.Settings.ReporterType)
	assert.Equal(t, 5*time.Second, cfg.Hook.Timeout)
	assert.Equal(t, "parameter:SerialNumber", cfg.Hook.IdentitySource)
	assert.Equal(t, 3*time.Second, cfg.Reconcile.CallTimeout)
	assert.Equal(t, 4, cfg.Reconcile.PollAttempts)
	assert.Equal(t, "dev_", cfg.Admission.NamePrefix)
	assert.Equal(t, []admission.Override{{Name: "Env", Value: "prod"}}, cfg.Admission.Overrides)
	assert.Equal(t, []string{"eu-west-1"}, cfg.Admission.Policy.AllowedRegions)
	assert.Equal(t, "eu-west-1", cfg.Admission.Policy.Parameters[0].Equals)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, RegistryMemory, cfg.Server.Registry)
	assert.Equal(t, 2*time.Second, cfg.Server.GracefulShutdownDuration)
	assert.Equal(t, DefaultConfig().Server.MaxBodyBytes, cfg.Server.MaxBodyBytes)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"log level", "settings:\n  log_level: verbose\n"},
		{"reporter", "settings:\n  reporter: xml\n"},
		{"concurrency", "settings:\n  concurrency: 0\n"},
		{"registry", "server:\n  registry: dynamodb\n"},
		{"hook timeout", "hook:\n  timeout: 0s\n"},
		{"name prefix", "admission:\n  name_prefix: \"bad prefix\"\n"},
		{"claim pattern", "admission:\n  policy:\n    claim_pattern: \"([\"\n"},
		{"account id", "stack:\n  account_id: abc\n"},
		{"aws rps", "aws:\n  max_rps: 1000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeConfigValidation), "got %v", err)
			_, _, userFacing := errors.GetUserFacingMessage(err)
			assert.True(t, userFacing)
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := load(t, "hook:\n  timeout: soon\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConfigParseError))
}
