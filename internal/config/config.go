package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/hook"
	awsprovider "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/transport/httpapi"
	"github.com/olusolaa/fleet-provisioner/internal/core/admission"
	"github.com/olusolaa/fleet-provisioner/internal/core/reconcile"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/log"
	"github.com/olusolaa/fleet-provisioner/internal/reporting/json"
	"github.com/olusolaa/fleet-provisioner/internal/reporting/text"
	"github.com/olusolaa/fleet-provisioner/internal/validation"
)

const (
	RegistryAWS    = awsprovider.ProviderTypeAWS
	RegistryMemory = "memory"
)

type Config struct {
	Settings  SettingsConfig       `mapstructure:"settings"`
	Stack     StackConfig          `mapstructure:"stack"`
	AWS       awsprovider.Settings `mapstructure:"aws"`
	Admission admission.Config     `mapstructure:"admission"`
	Hook      hook.Config          `mapstructure:"hook"`
	Reconcile reconcile.Config     `mapstructure:"reconcile"`
	Server    ServerConfig         `mapstructure:"server"`
}

type SettingsConfig struct {
	LogLevel     log.Level       `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat    log.Format      `mapstructure:"log_format" validate:"omitempty,oneof=text json"`
	Concurrency  int             `mapstructure:"concurrency" validate:"min=1,max=256"`
	ReporterType string          `mapstructure:"reporter" validate:"oneof=text json"`
	Reporter     ReporterConfigs `mapstructure:"reporter_config"`
}

type ReporterConfigs struct {
	Text text.Config `mapstructure:"text"`
	JSON json.Config `mapstructure:"json"`
}

// StackConfig identifies the owning stack when an event does not carry one
// and seeds the in-memory registry.
type StackConfig struct {
	ID        string `mapstructure:"id" validate:"omitempty,max=2048"`
	Name      string `mapstructure:"name" validate:"omitempty,max=128"`
	AccountID string `mapstructure:"account_id" validate:"omitempty,numeric,len=12"`
	Region    string `mapstructure:"region" validate:"omitempty,max=32"`
}

type ServerConfig struct {
	httpapi.Config `mapstructure:",squash"`
	Registry       string `mapstructure:"registry" validate:"oneof=aws memory"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:     log.LevelInfo,
			LogFormat:    log.FormatText,
			Concurrency:  10,
			ReporterType: text.ReporterTypeText,
		},
		Stack: StackConfig{
			AccountID: "000000000000",
			Region:    "us-east-1",
		},
		AWS: awsprovider.Settings{
			MaxRPS:      10,
			MaxAttempts: 3,
		},
		Admission: admission.DefaultConfig(),
		Hook:      hook.DefaultConfig(),
		Reconcile: reconcile.DefaultConfig(),
		Server: ServerConfig{
			Config:   httpapi.DefaultConfig(),
			Registry: RegistryAWS,
		},
	}
}

// Load decodes v over the defaults and validates the result.
func Load(ctx context.Context, v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}
	if err := Validate(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(ctx context.Context, cfg *Config) error {
	err := validation.New().StructCtx(ctx, cfg)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.CodeConfigValidation, "configuration could not be validated")
	}
	var details strings.Builder
	details.WriteString("Configuration validation failed:")
	for _, fe := range validationErrors {
		details.WriteString(fmt.Sprintf("\n - Field '%s': Failed on '%s' validation (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.NewUserFacing(errors.CodeConfigValidation, details.String(), "Please check your configuration file, environment or flags.")
}
