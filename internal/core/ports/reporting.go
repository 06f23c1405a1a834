package ports

import (
	"context"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

// VerdictReport pairs a request label (file, line, client id) with its verdict.
type VerdictReport struct {
	Source  string
	Verdict domain.AdmissionVerdict
	Error   error
}

type Reporter interface {
	ReportVerdicts(ctx context.Context, reports []VerdictReport) error
	ReportLifecycle(ctx context.Context, event *domain.LifecycleEvent, result domain.LifecycleResult) error
}
