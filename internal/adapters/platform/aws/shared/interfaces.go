package shared

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
)

// RateLimiter defines an interface for rate-limiting AWS API calls.
type RateLimiter interface {
	// Wait blocks until the rate limit allows proceeding, or returns an error.
	Wait(ctx context.Context, logger ports.Logger) error
}

// ErrorHandler translates an AWS SDK error into an application error.
// Service and operation identify where the error occurred.
type ErrorHandler interface {
	Handle(service, operation string, err error, ctx context.Context) error
}

// STSClientInterface defines the method needed from the AWS SDK STS client.
type STSClientInterface interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}
