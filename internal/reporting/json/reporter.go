package json

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

const ReporterTypeJSON = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	Compact bool `mapstructure:"compact"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

type Option func(*Reporter)

func WithWriter(w io.Writer) Option {
	return func(r *Reporter) { r.writer = w }
}

func NewReporter(cfg Config, logger ports.Logger, opts ...Option) (*Reporter, error) {
	r := &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type verdictReport struct {
	Summary verdictSummary `json:"summary"`
	Results []verdictItem  `json:"results"`
}

type verdictSummary struct {
	Total   int `json:"total"`
	Allowed int `json:"allowed"`
	Denied  int `json:"denied"`
	Errors  int `json:"errors"`
}

type verdictItem struct {
	Source             string            `json:"source"`
	AllowProvisioning  bool              `json:"allowProvisioning"`
	ParameterOverrides map[string]string `json:"parameterOverrides,omitempty"`
	Reason             string            `json:"reason,omitempty"`
	DeniedBy           string            `json:"denied_by,omitempty"`
	ErrorMessage       string            `json:"error_message,omitempty"`
}

type lifecycleItem struct {
	RequestType        string            `json:"request_type,omitempty"`
	LogicalResourceID  string            `json:"logical_resource_id,omitempty"`
	Status             string            `json:"status"`
	PhysicalResourceID string            `json:"physical_resource_id"`
	Reason             string            `json:"reason,omitempty"`
	Data               map[string]string `json:"data,omitempty"`
}

func (r *Reporter) ReportVerdicts(ctx context.Context, reports []ports.VerdictReport) error {
	out := verdictReport{
		Summary: verdictSummary{Total: len(reports)},
		Results: make([]verdictItem, 0, len(reports)),
	}
	for _, rep := range reports {
		if ctx.Err() != nil {
			r.logger.Warnf(ctx, "JSON report generation cancelled.")
			return ctx.Err()
		}
		item := verdictItem{
			Source:            rep.Source,
			AllowProvisioning: rep.Verdict.Allowed,
			Reason:            rep.Verdict.Reason,
			DeniedBy:          rep.Verdict.DeniedBy,
		}
		switch {
		case rep.Error != nil:
			out.Summary.Errors++
			item.AllowProvisioning = false
			item.ErrorMessage = rep.Error.Error()
		case rep.Verdict.Allowed:
			out.Summary.Allowed++
			item.ParameterOverrides = rep.Verdict.ParameterOverrides
		default:
			out.Summary.Denied++
		}
		out.Results = append(out.Results, item)
	}
	return r.encode(ctx, out)
}

func (r *Reporter) ReportLifecycle(ctx context.Context, event *domain.LifecycleEvent, result domain.LifecycleResult) error {
	item := lifecycleItem{
		Status:             string(result.Status),
		PhysicalResourceID: result.PhysicalResourceID,
		Reason:             result.Reason,
		Data:               result.Data,
	}
	if event != nil {
		item.RequestType = event.RequestType.String()
		item.LogicalResourceID = event.LogicalResourceID
	}
	return r.encode(ctx, item)
}

func (r *Reporter) encode(ctx context.Context, v any) error {
	encoder := json.NewEncoder(r.writer)
	if !r.config.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		r.logger.Errorf(ctx, err, "Failed to encode JSON report")
		fmt.Fprintf(r.writer, "{\"error\": \"failed to generate JSON report: %v\"}\n", err)
		return errors.Wrap(err, errors.CodeInternal, "failed to encode JSON report")
	}
	r.logger.Debugf(ctx, "JSON report successfully generated.")
	return nil
}
