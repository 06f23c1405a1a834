package app

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/hook"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/lifecycle"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/transport/httpapi"
	"github.com/olusolaa/fleet-provisioner/internal/adapters/transport/lambda"
	"github.com/olusolaa/fleet-provisioner/internal/config"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Application holds the wired components. Hook or Lifecycle is nil when
// the command did not ask for it.
type Application struct {
	Config    *config.Config
	Logger    ports.Logger
	Metrics   *metrics.Metrics
	Reporter  ports.Reporter
	Hook      *hook.Endpoint
	Lifecycle *lifecycle.Endpoint
}

type EvaluationSummary struct {
	Total   int
	Allowed int
	Denied  int
	Errors  int
}

// Serve runs the HTTP transport until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a.Hook == nil || a.Lifecycle == nil {
		return errors.New(errors.CodeInternal, "serve needs both hook and lifecycle components")
	}
	srv, err := httpapi.New(a.Config.Server.Config, a.Hook, a.Lifecycle, a.Metrics,
		a.Logger.WithFields(map[string]any{"component": "http"}))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func (a *Application) StartLambdaHook() error {
	if a.Hook == nil {
		return errors.New(errors.CodeInternal, "hook component not initialized")
	}
	lambda.StartHook(a.Hook)
	return nil
}

func (a *Application) StartLambdaLifecycle(mode string) error {
	if a.Lifecycle == nil {
		return errors.New(errors.CodeInternal, "lifecycle component not initialized")
	}
	if mode != lambda.ModeProvider && mode != lambda.ModeDirect {
		return errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported lifecycle mode: %s", mode), "Supported: provider, direct")
	}
	lambda.StartLifecycle(a.Lifecycle, mode)
	return nil
}

type evaluationInput struct {
	source string
	raw    []byte
	err    error
}

// EvaluateFiles dry-runs admission for every hook payload in paths. A file
// holds one payload object or an array of them.
func (a *Application) EvaluateFiles(ctx context.Context, paths []string) (EvaluationSummary, error) {
	if a.Hook == nil {
		return EvaluationSummary{}, errors.New(errors.CodeInternal, "hook component not initialized")
	}
	var inputs []evaluationInput
	for _, path := range paths {
		inputs = append(inputs, readPayloads(path)...)
	}

	reports := make([]ports.VerdictReport, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Settings.Concurrency)
	for i, in := range inputs {
		reports[i].Source = in.source
		if in.err != nil {
			reports[i].Error = in.err
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i].Verdict = a.Hook.Verdict(gctx, in.raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EvaluationSummary{}, errors.Wrap(err, errors.CodeTimeout, "admission dry run interrupted")
	}

	summary := EvaluationSummary{Total: len(reports)}
	for _, r := range reports {
		switch {
		case r.Error != nil:
			summary.Errors++
		case r.Verdict.Allowed:
			summary.Allowed++
		default:
			summary.Denied++
		}
	}
	if err := a.Reporter.ReportVerdicts(ctx, reports); err != nil {
		return summary, err
	}
	return summary, nil
}

func readPayloads(path string) []evaluationInput {
	raw, err := os.ReadFile(path)
	if err != nil {
		return []evaluationInput{{source: path, err: errors.WrapUserFacing(err, errors.CodeConfigReadError,
			fmt.Sprintf("cannot read %s", path), "Check the payload file path.")}}
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []evaluationInput{{source: path, raw: raw}}
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return []evaluationInput{{source: path, err: errors.WrapUserFacing(err, errors.CodeStructural,
			fmt.Sprintf("%s is not a JSON array of payloads", path), "Provide one payload object or an array of them.")}}
	}
	inputs := make([]evaluationInput, len(items))
	for i, item := range items {
		inputs[i] = evaluationInput{source: fmt.Sprintf("%s[%d]", path, i), raw: item}
	}
	return inputs
}

// Reconcile applies one lifecycle event read from raw. Missing stack and
// request identifiers are filled from configuration so hand-written
// events stay short.
func (a *Application) Reconcile(ctx context.Context, raw []byte) (domain.LifecycleResult, error) {
	if a.Lifecycle == nil {
		return domain.LifecycleResult{}, errors.New(errors.CodeInternal, "lifecycle component not initialized")
	}
	var event cfn.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return domain.LifecycleResult{}, errors.WrapUserFacing(err, errors.CodeStructural,
			"lifecycle event is not valid JSON", "Provide a CloudFormation custom resource event document.")
	}
	if event.StackID == "" {
		event.StackID = a.Config.Stack.ID
	}
	if event.RequestID == "" {
		event.RequestID = uuid.NewString()
	}
	if event.ResourceProperties == nil {
		event.ResourceProperties = map[string]interface{}{}
	}
	if _, ok := event.ResourceProperties["stackName"]; !ok && a.Config.Stack.Name != "" {
		event.ResourceProperties["stackName"] = a.Config.Stack.Name
	}

	result := a.Lifecycle.Handle(ctx, event)
	reported := &domain.LifecycleEvent{
		RequestType:        domain.RequestType(event.RequestType),
		RequestID:          event.RequestID,
		StackID:            event.StackID,
		LogicalResourceID:  event.LogicalResourceID,
		PhysicalResourceID: event.PhysicalResourceID,
	}
	if err := a.Reporter.ReportLifecycle(ctx, reported, result); err != nil {
		return result, err
	}
	return result, nil
}
