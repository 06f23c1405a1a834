package hook

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/metrics"
)

// Endpoint answers pre-provisioning hook invocations. It never returns an
// error: every failure is expressed as a deny response.
type Endpoint struct {
	evaluator ports.AdmissionEvaluator
	timeout   time.Duration
	identity  identityFunc
	logger    ports.Logger
	metrics   *metrics.Metrics
}

type Option func(*Endpoint)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Endpoint) {
		e.metrics = m
	}
}

func NewEndpoint(evaluator ports.AdmissionEvaluator, cfg Config, logger ports.Logger, opts ...Option) (*Endpoint, error) {
	if evaluator == nil {
		return nil, errors.New(errors.CodeConfigValidation, "admission evaluator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil for hook endpoint")
	}
	identity, err := identityFor(cfg.IdentitySource)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	e := &Endpoint{
		evaluator: evaluator,
		timeout:   cfg.Timeout,
		identity:  identity,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Handle decodes raw and answers it.
func (e *Endpoint) Handle(ctx context.Context, raw []byte) Response {
	return responseFor(e.Verdict(ctx, raw))
}

// Verdict is Handle without the wire mapping; it keeps the deciding
// predicate for offline dry runs.
func (e *Endpoint) Verdict(ctx context.Context, raw []byte) domain.AdmissionVerdict {
	logger := e.logger.WithFields(map[string]any{"invocation_id": uuid.NewString()})
	payload, err := Decode(raw)
	if err != nil {
		logger.Warnf(ctx, "Rejecting malformed provisioning hook payload: %v", err)
		return e.finish(ctx, logger, time.Now(), domain.Deny(domain.ReasonMalformedPayload))
	}
	return e.handle(ctx, logger, payload)
}

// HandleRequest answers an already decoded payload, as delivered by the
// Lambda runtime.
func (e *Endpoint) HandleRequest(ctx context.Context, payload *events.IoTPreProvisionHookRequest) Response {
	logger := e.logger.WithFields(map[string]any{"invocation_id": uuid.NewString()})
	if payload == nil {
		logger.Warnf(ctx, "Rejecting empty provisioning hook payload")
		return responseFor(e.finish(ctx, logger, time.Now(), domain.Deny(domain.ReasonMalformedPayload)))
	}
	return responseFor(e.handle(ctx, logger, payload))
}

func (e *Endpoint) handle(ctx context.Context, logger ports.Logger, payload *events.IoTPreProvisionHookRequest) domain.AdmissionVerdict {
	start := time.Now()
	logger = logger.WithFields(map[string]any{
		"client_id":    payload.ClientID,
		"template_arn": payload.TemplateARN,
	})

	req, err := toRequest(payload, e.identity)
	if err != nil {
		logger.Warnf(ctx, "Rejecting provisioning hook payload: %v", err)
		return e.finish(ctx, logger, start, domain.Deny(domain.ReasonMalformedPayload))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	verdict, err := e.evaluate(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, errors.CodeTimeout) || ctx.Err() != nil:
		logger.Warnf(ctx, "Admission evaluation did not finish within %s", e.timeout)
		verdict = domain.Deny(domain.ReasonTimeout)
	default:
		logger.Errorf(ctx, err, "Admission evaluation failed")
		verdict = domain.Deny(domain.ReasonInternalError)
	}
	return e.finish(ctx, logger, start, verdict)
}

type evaluation struct {
	verdict domain.AdmissionVerdict
	err     error
}

// evaluate runs the evaluator so that the deadline holds even if a
// predicate ignores ctx.
func (e *Endpoint) evaluate(ctx context.Context, req *domain.ProvisioningRequest) (domain.AdmissionVerdict, error) {
	done := make(chan evaluation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- evaluation{err: errors.New(errors.CodeInternal, fmt.Sprintf("admission evaluator panicked: %v", r))}
			}
		}()
		v, err := e.evaluator.Evaluate(ctx, req)
		done <- evaluation{verdict: v, err: err}
	}()

	select {
	case out := <-done:
		return out.verdict, out.err
	case <-ctx.Done():
		return domain.AdmissionVerdict{}, errors.Wrap(ctx.Err(), errors.CodeTimeout, "admission evaluation timed out")
	}
}

func (e *Endpoint) finish(ctx context.Context, logger ports.Logger, start time.Time, verdict domain.AdmissionVerdict) domain.AdmissionVerdict {
	e.metrics.ObserveVerdict(verdict, time.Since(start))
	if verdict.Allowed {
		logger.Infof(ctx, "Provisioning allowed as %s", verdict.ResourceName)
	} else if verdict.DeniedBy != "" {
		logger.Infof(ctx, "Provisioning denied by %s: %s", verdict.DeniedBy, verdict.Reason)
	} else {
		logger.Infof(ctx, "Provisioning denied: %s", verdict.Reason)
	}
	return verdict
}
