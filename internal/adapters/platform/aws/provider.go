package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	aws_errors "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/errors"
	iotregistry "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/iot"
	aws_limiter "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/limiter"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/shared"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

const ProviderTypeAWS = "aws"

type Settings struct {
	Region  string `mapstructure:"region" validate:"omitempty,max=32"`
	Profile string `mapstructure:"profile"`
	// MaxRPS caps registry API calls per second across all regions.
	MaxRPS int `mapstructure:"max_rps" validate:"min=0,max=100"`
	// MaxAttempts configures the SDK retryer. 1 disables SDK retries.
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=0,max=10"`
}

// Provider owns the AWS configuration and hands out IoT registries per
// region. It implements ports.GroupRegistryFactory.
type Provider struct {
	awsConfig    aws.Config
	logger       ports.Logger
	stsClient    shared.STSClientInterface
	limiter      shared.RateLimiter
	errorHandler shared.ErrorHandler
	iotFactory   func(aws.Config) iotregistry.IoTClientInterface

	accMu     sync.RWMutex
	accountID string

	regMu      sync.Mutex
	registries map[string]ports.GroupRegistry
}

var _ ports.GroupRegistryFactory = (*Provider)(nil)

type ProviderOption func(*Provider)

func WithSTSClient(client shared.STSClientInterface) ProviderOption {
	return func(p *Provider) {
		if client != nil {
			p.stsClient = client
		}
	}
}

func WithRateLimiter(limiter shared.RateLimiter) ProviderOption {
	return func(p *Provider) {
		if limiter != nil {
			p.limiter = limiter
		}
	}
}

func WithErrorHandler(handler shared.ErrorHandler) ProviderOption {
	return func(p *Provider) {
		if handler != nil {
			p.errorHandler = handler
		}
	}
}

// WithIoTClientFactory replaces how per-region IoT clients are built.
func WithIoTClientFactory(factory func(aws.Config) iotregistry.IoTClientInterface) ProviderOption {
	return func(p *Provider) {
		if factory != nil {
			p.iotFactory = factory
		}
	}
}

// LoadConfig resolves the AWS SDK configuration from the default chain,
// narrowed by settings.
func LoadConfig(ctx context.Context, settings Settings) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, config.WithRegion(settings.Region))
	}
	if settings.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(settings.Profile))
	}
	if settings.MaxAttempts > 0 {
		maxAttempts := settings.MaxAttempts
		opts = append(opts, config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
		}))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, errors.CodeConfigValidation, "failed to load default AWS config")
	}
	return cfg, nil
}

func NewProvider(cfg aws.Config, settings Settings, logger ports.Logger, opts ...ProviderOption) (*Provider, error) {
	if logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil for AWS Provider")
	}
	p := &Provider{
		awsConfig:    cfg,
		logger:       logger,
		errorHandler: &aws_errors.DefaultErrorHandler{},
		registries:   make(map[string]ports.GroupRegistry),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.stsClient == nil {
		p.stsClient = sts.NewFromConfig(cfg)
	}
	if p.limiter == nil {
		p.limiter = aws_limiter.New(settings.MaxRPS, logger)
	}
	return p, nil
}

func (p *Provider) Type() string {
	return ProviderTypeAWS
}

func (p *Provider) Region() string {
	return p.awsConfig.Region
}

// AccountID returns the caller's account, resolved once through STS.
func (p *Provider) AccountID(ctx context.Context) (string, error) {
	p.accMu.RLock()
	acc := p.accountID
	p.accMu.RUnlock()
	if acc != "" {
		return acc, nil
	}

	p.accMu.Lock()
	defer p.accMu.Unlock()
	if p.accountID != "" {
		return p.accountID, nil
	}

	if err := p.limiter.Wait(ctx, p.logger); err != nil {
		return "", errors.Wrap(err, errors.CodeTimeout, "AWS API rate limiter wait aborted")
	}
	out, err := p.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", p.errorHandler.Handle("STS", "GetCallerIdentity", err, ctx)
	}
	if out == nil || out.Account == nil {
		return "", errors.New(errors.CodeTransientExternal, "AWS caller identity response did not contain Account ID")
	}
	p.accountID = aws.ToString(out.Account)
	return p.accountID, nil
}

// ForRegion returns the registry for region, building and caching its
// client on first use. An empty region selects the configured one.
func (p *Provider) ForRegion(_ context.Context, region string) (ports.GroupRegistry, error) {
	if region == "" {
		region = p.awsConfig.Region
	}
	if region == "" {
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"no AWS region configured for the thing group registry",
			"Set aws.region, AWS_REGION or the regionName resource property.")
	}

	p.regMu.Lock()
	defer p.regMu.Unlock()
	if reg, ok := p.registries[region]; ok {
		return reg, nil
	}

	cfg := p.awsConfig.Copy()
	cfg.Region = region
	opts := []iotregistry.RegistryOption{
		iotregistry.WithRateLimiter(p.limiter),
		iotregistry.WithErrorHandler(p.errorHandler),
		iotregistry.WithLogger(p.logger.WithFields(map[string]any{"region": region})),
	}
	if p.iotFactory != nil {
		opts = append(opts, iotregistry.WithIoTClient(p.iotFactory(cfg)))
	}
	reg := iotregistry.NewRegistry(cfg, opts...)
	p.registries[region] = reg
	p.logger.Debugf(context.Background(), "Initialized IoT registry client for region %s", region)
	return reg, nil
}
