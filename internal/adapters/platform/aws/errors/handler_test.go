package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

// codedError carries only ErrorCode, like some SDK test doubles.
type codedError struct {
	code string
}

func (c *codedError) Error() string     { return "coded: " + c.code }
func (c *codedError) ErrorCode() string { return c.code }

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " from service", Fault: smithy.FaultClient}
}

func TestHandleAWSError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		ctx          context.Context
		expectedCode errors.Code
	}{
		{name: "nil error", err: nil, ctx: context.Background(), expectedCode: errors.CodeInternal},
		{name: "context canceled", err: fmt.Errorf("some error"), ctx: canceledContext(), expectedCode: errors.CodeTimeout},
		{name: "direct deadline exceeded", err: context.DeadlineExceeded, ctx: context.Background(), expectedCode: errors.CodeTimeout},
		{name: "wrapped deadline exceeded", err: fmt.Errorf("operation error IoT: %w", context.DeadlineExceeded), ctx: context.Background(), expectedCode: errors.CodeTimeout},
		{name: "access denied code", err: apiError("AccessDeniedException"), ctx: context.Background(), expectedCode: errors.CodePlatformAuthError},
		{name: "access denied message", err: fmt.Errorf("AccessDenied: nope"), ctx: context.Background(), expectedCode: errors.CodePlatformAuthError},
		{name: "expired token", err: apiError("ExpiredTokenException"), ctx: context.Background(), expectedCode: errors.CodePlatformAuthError},
		{name: "not found", err: apiError("ResourceNotFoundException"), ctx: context.Background(), expectedCode: errors.CodeResourceNotFound},
		{name: "not found wrapped", err: fmt.Errorf("operation error IoT: DescribeThingGroup: %w", apiError("ResourceNotFoundException")), ctx: context.Background(), expectedCode: errors.CodeResourceNotFound},
		{name: "not found via ErrorCode only", err: &codedError{code: "ResourceNotFoundException"}, ctx: context.Background(), expectedCode: errors.CodeResourceNotFound},
		{name: "already exists", err: apiError("ResourceAlreadyExistsException"), ctx: context.Background(), expectedCode: errors.CodeResourceAlreadyExists},
		{name: "invalid request", err: apiError("InvalidRequestException"), ctx: context.Background(), expectedCode: errors.CodeValidation},
		{name: "version conflict", err: apiError("VersionConflictException"), ctx: context.Background(), expectedCode: errors.CodeTransientExternal},
		{name: "throttling", err: apiError("ThrottlingException"), ctx: context.Background(), expectedCode: errors.CodeTransientExternal},
		{name: "generic error", err: fmt.Errorf("connection reset by peer"), ctx: context.Background(), expectedCode: errors.CodeTransientExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HandleAWSError("thing group", "fleet-group", tt.err, tt.ctx)

			appErr, ok := result.(*errors.AppError)
			require.True(t, ok, "expected an *errors.AppError, got %T", result)
			assert.Equal(t, tt.expectedCode, appErr.Code)
		})
	}
}

func TestHandleAWSError_KeepsExistingClassification(t *testing.T) {
	inner := errors.New(errors.CodeInvariantViolation, "owned elsewhere")

	result := HandleAWSError("thing group", "fleet-group", inner, context.Background())

	assert.True(t, errors.Is(result, errors.CodeInvariantViolation))
}

func TestDefaultErrorHandler_Handle(t *testing.T) {
	handler := &DefaultErrorHandler{}

	err := handler.Handle("thing group", "fleet-group", apiError("ResourceNotFoundException"), context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeResourceNotFound))
	assert.Contains(t, err.Error(), "fleet-group")
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
