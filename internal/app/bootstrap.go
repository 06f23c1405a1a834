package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/hook"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/lifecycle"
	awsprovider "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/platform/memory"
	"github.com/olusolaa/fleet-provisioner/internal/config"
	"github.com/olusolaa/fleet-provisioner/internal/core/admission"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/core/reconcile"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/log"
	"github.com/olusolaa/fleet-provisioner/internal/metrics"
	jsonreport "github.com/olusolaa/fleet-provisioner/internal/reporting/json"
	"github.com/olusolaa/fleet-provisioner/internal/reporting/text"
)

const serviceName = "fleet-provisioner"

// Component selects which halves of the application a command needs.
// Commands that only evaluate admission never touch AWS.
type Component int

const (
	ComponentHook Component = 1 << iota
	ComponentLifecycle
	ComponentAll = ComponentHook | ComponentLifecycle
)

type buildOptions struct {
	components Component
	registries ports.GroupRegistryFactory
	logOutput  io.Writer
	output     io.Writer
}

type Option func(*buildOptions)

func WithComponents(c Component) Option {
	return func(o *buildOptions) { o.components = c }
}

// WithRegistryFactory bypasses server.registry selection.
func WithRegistryFactory(f ports.GroupRegistryFactory) Option {
	return func(o *buildOptions) { o.registries = f }
}

func WithLogOutput(w io.Writer) Option {
	return func(o *buildOptions) { o.logOutput = w }
}

// WithOutput redirects reporter output, which defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *buildOptions) { o.output = w }
}

func BuildApplicationFromViper(ctx context.Context, v *viper.Viper, opts ...Option) (*Application, error) {
	o := buildOptions{components: ComponentAll, output: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(ctx, v)
	if err != nil {
		return nil, err
	}
	applyCLIOverrides(cfg, v)
	if err := config.Validate(ctx, cfg); err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg, o.logOutput)
	if err != nil {
		return nil, err
	}
	logger.Infof(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	} else {
		logger.Debugf(ctx, "No configuration file found, using defaults/env/flags.")
	}

	a := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if a.Reporter, err = initReporter(cfg, logger, o.output); err != nil {
		return nil, err
	}

	if o.components&ComponentHook != 0 {
		if err := a.initHook(ctx); err != nil {
			return nil, err
		}
	}
	if o.components&ComponentLifecycle != 0 {
		registries := o.registries
		if registries == nil {
			if registries, err = initRegistries(ctx, cfg, logger); err != nil {
				return nil, err
			}
		}
		if err := a.initLifecycle(ctx, registries); err != nil {
			return nil, err
		}
	}

	logger.Infof(ctx, "Application bootstrap complete")
	return a, nil
}

func initLogger(cfg *config.Config, output io.Writer) (ports.Logger, error) {
	logger, err := log.NewLogger(log.Config{
		Level:   cfg.Settings.LogLevel,
		Format:  cfg.Settings.LogFormat,
		Service: serviceName,
		Output:  output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	return logger, nil
}

func initReporter(cfg *config.Config, logger ports.Logger, output io.Writer) (ports.Reporter, error) {
	reportLog := logger.WithFields(map[string]any{"component": "reporter", "type": cfg.Settings.ReporterType})
	switch cfg.Settings.ReporterType {
	case text.ReporterTypeText:
		return text.NewReporter(cfg.Settings.Reporter.Text, reportLog, text.WithWriter(output))
	case jsonreport.ReporterTypeJSON:
		return jsonreport.NewReporter(cfg.Settings.Reporter.JSON, reportLog, jsonreport.WithWriter(output))
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported reporter type: %s", cfg.Settings.ReporterType), "Supported: text, json")
	}
}

func (a *Application) initHook(ctx context.Context) error {
	evaluator, err := admission.NewEvaluator(a.Config.Admission)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize admission evaluator")
	}
	a.Logger.Infof(ctx, "Admission policy predicates: %v", evaluator.Predicates())

	hookLog := a.Logger.WithFields(map[string]any{"component": "hook"})
	a.Hook, err = hook.NewEndpoint(evaluator, a.Config.Hook, hookLog, hook.WithMetrics(a.Metrics))
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize provisioning hook endpoint")
	}
	return nil
}

func (a *Application) initLifecycle(ctx context.Context, registries ports.GroupRegistryFactory) error {
	reconcileLog := a.Logger.WithFields(map[string]any{"component": "reconciler"})
	reconciler, err := reconcile.New(registries, a.Config.Reconcile, reconcileLog)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize reconciler")
	}
	lifecycleLog := a.Logger.WithFields(map[string]any{"component": "lifecycle"})
	a.Lifecycle, err = lifecycle.NewEndpoint(reconciler, lifecycleLog, lifecycle.WithMetrics(a.Metrics))
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize lifecycle endpoint")
	}
	a.Logger.Debugf(ctx, "Lifecycle endpoint ready (call timeout %s, %d poll attempts)",
		a.Config.Reconcile.CallTimeout, a.Config.Reconcile.PollAttempts)
	return nil
}

func initRegistries(ctx context.Context, cfg *config.Config, logger ports.Logger) (ports.GroupRegistryFactory, error) {
	switch cfg.Server.Registry {
	case config.RegistryMemory:
		logger.Warnf(ctx, "Using in-memory thing group registry; state is lost on exit")
		return memory.NewFactory(cfg.Stack.Region, cfg.Stack.AccountID), nil
	case config.RegistryAWS:
		provLog := logger.WithFields(map[string]any{"provider": awsprovider.ProviderTypeAWS})
		awsCfg, err := awsprovider.LoadConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		provider, err := awsprovider.NewProvider(awsCfg, cfg.AWS, provLog)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize AWS provider")
		}
		// Identity is informational here; registry calls surface auth
		// failures on their own.
		if account, err := provider.AccountID(ctx); err != nil {
			provLog.Warnf(ctx, "Could not resolve AWS caller identity: %v", err)
		} else {
			provLog.Infof(ctx, "Using AWS IoT registry in account %s (default region %q)", account, provider.Region())
		}
		return provider, nil
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported registry: %s", cfg.Server.Registry), "Supported: aws, memory")
	}
}
