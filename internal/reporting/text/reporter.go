package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	apperrors "github.com/olusolaa/fleet-provisioner/internal/errors"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `mapstructure:"no_color"`
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
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
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

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) ReportVerdicts(ctx context.Context, reports []ports.VerdictReport) error {
	if len(reports) == 0 {
		fmt.Fprintln(r.writer, "No provisioning requests evaluated.")
		return nil
	}

	sorted := make([]ports.VerdictReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()

	fmt.Fprintln(tw, "Admission Report")
	fmt.Fprintln(tw, "================")
	fmt.Fprintln(tw, "Verdict\tSource\tDetails")
	fmt.Fprintln(tw, "-------\t------\t-------")

	allowed, denied, failed := 0, 0, 0
	for _, rep := range sorted {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var verdict, details string
		switch {
		case rep.Error != nil:
			failed++
			verdict = magenta("[ERROR]")
			details = errorDetails(rep.Error)
		case rep.Verdict.Allowed:
			allowed++
			verdict = green("[ALLOW]")
			details = allowDetails(rep.Verdict)
		default:
			denied++
			verdict = red("[DENY]")
			details = rep.Verdict.Reason
			if rep.Verdict.DeniedBy != "" {
				details = fmt.Sprintf("%s (by %s)", details, rep.Verdict.DeniedBy)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", verdict, rep.Source, details)
	}

	fmt.Fprintln(tw, "\nSummary:")
	fmt.Fprintln(tw, "-------")
	fmt.Fprintf(tw, "Total Requests:\t%d\n", len(sorted))
	fmt.Fprintf(tw, "Allowed:\t%s\n", green(allowed))
	fmt.Fprintf(tw, "Denied:\t%s\n", red(denied))
	fmt.Fprintf(tw, "Errors:\t%s\n", magenta(failed))
	return nil
}

func (r *Reporter) ReportLifecycle(ctx context.Context, event *domain.LifecycleEvent, result domain.LifecycleResult) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	status := color.New(color.FgGreen).Sprint("[" + string(result.Status) + "]")
	if result.Status == domain.StatusFailed {
		status = color.New(color.FgRed).Sprint("[" + string(result.Status) + "]")
	}

	requestType := ""
	if event != nil {
		requestType = event.RequestType.String()
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\n", status, requestType, result.PhysicalResourceID)
	if result.Reason != "" {
		fmt.Fprintf(tw, "Reason:\t%s\n", result.Reason)
	}
	keys := make([]string, 0, len(result.Data))
	for k := range result.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, result.Data[k])
	}
	return nil
}

func allowDetails(v domain.AdmissionVerdict) string {
	keys := make([]string, 0, len(v.ParameterOverrides))
	for k := range v.ParameterOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v.ParameterOverrides[k]))
	}
	return strings.Join(parts, ", ")
}

func errorDetails(err error) string {
	details := fmt.Sprintf("Evaluation failed: %v", err)
	if msg, _, ok := apperrors.GetUserFacingMessage(err); ok {
		details += fmt.Sprintf(" (%s)", msg)
	}
	return details
}
