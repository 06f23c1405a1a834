// Package lambda adapts the hook and lifecycle endpoints to the Lambda
// runtime.
package lambda

import (
	"context"
	stderrs "errors"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/hook"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

const (
	ModeProvider = "provider"
	ModeDirect   = "direct"
)

type HookEndpoint interface {
	HandleRequest(ctx context.Context, payload *events.IoTPreProvisionHookRequest) hook.Response
}

type LifecycleEndpoint interface {
	Handle(ctx context.Context, event cfn.Event) domain.LifecycleResult
}

// ProviderResponse is what an onEvent handler behind a provider framework
// returns; the framework reports status to the stack itself.
type ProviderResponse struct {
	PhysicalResourceID string            `json:"PhysicalResourceId"`
	Data               map[string]string `json:"Data,omitempty"`
}

// HookHandler never returns an error: every outcome, including a malformed
// payload, is a verdict.
func HookHandler(endpoint HookEndpoint) func(context.Context, events.IoTPreProvisionHookRequest) (hook.Response, error) {
	return func(ctx context.Context, req events.IoTPreProvisionHookRequest) (hook.Response, error) {
		return endpoint.HandleRequest(ctx, &req), nil
	}
}

// ProviderHandler reports a FAILED result as an error, which the provider
// framework turns into a FAILED response carrying the message.
func ProviderHandler(endpoint LifecycleEndpoint) func(context.Context, cfn.Event) (ProviderResponse, error) {
	return func(ctx context.Context, event cfn.Event) (ProviderResponse, error) {
		result := endpoint.Handle(ctx, event)
		if result.Status == domain.StatusFailed {
			return ProviderResponse{PhysicalResourceID: result.PhysicalResourceID}, stderrs.New(result.Reason)
		}
		return ProviderResponse{PhysicalResourceID: result.PhysicalResourceID, Data: result.Data}, nil
	}
}

// CustomResourceFunction adapts endpoint for cfn.LambdaWrap, which uploads
// the response document to the event's ResponseURL.
func CustomResourceFunction(endpoint LifecycleEndpoint) cfn.CustomResourceFunction {
	return func(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
		result := endpoint.Handle(ctx, event)
		if result.Status == domain.StatusFailed {
			return result.PhysicalResourceID, nil, stderrs.New(result.Reason)
		}
		data := make(map[string]interface{}, len(result.Data))
		for k, v := range result.Data {
			data[k] = v
		}
		return result.PhysicalResourceID, data, nil
	}
}

func DirectHandler(endpoint LifecycleEndpoint) func(context.Context, cfn.Event) (string, error) {
	return cfn.LambdaWrap(CustomResourceFunction(endpoint))
}

// StartHook and StartLifecycle block serving Lambda invocations.
func StartHook(endpoint HookEndpoint) {
	awslambda.Start(HookHandler(endpoint))
}

func StartLifecycle(endpoint LifecycleEndpoint, mode string) {
	if mode == ModeDirect {
		awslambda.Start(DirectHandler(endpoint))
		return
	}
	awslambda.Start(ProviderHandler(endpoint))
}
