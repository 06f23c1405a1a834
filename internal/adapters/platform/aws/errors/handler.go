package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

var (
	notFoundCodes = map[string]struct{}{
		"ResourceNotFoundException": {},
		"NotFoundException":         {},
	}
	alreadyExistsCodes = map[string]struct{}{
		"ResourceAlreadyExistsException": {},
	}
	authCodes = map[string]struct{}{
		"AccessDeniedException":       {},
		"UnauthorizedException":       {},
		"UnrecognizedClientException": {},
		"ExpiredTokenException":       {},
		"InvalidClientTokenId":        {},
	}
	invalidCodes = map[string]struct{}{
		"InvalidRequestException": {},
		"LimitExceededException":  {},
	}
)

// HandleAWSError maps an AWS SDK error onto an application error code.
// resourceType names the registry object (e.g. "thing group"), resourceID
// its name. Anything unclassified is treated as transient so the lifecycle
// caller retries the whole event.
func HandleAWSError(resourceType string, resourceID string, err error, ctx context.Context) error {
	if err == nil {
		return errors.New(errors.CodeInternal, fmt.Sprintf("unexpected nil error in AWS error handler for %s", resourceType))
	}

	if ctx != nil && ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), errors.CodeTimeout,
			fmt.Sprintf("AWS %s call for '%s' interrupted", resourceType, resourceID))
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeTimeout,
			fmt.Sprintf("AWS %s call for '%s' interrupted", resourceType, resourceID))
	}

	code := errorCode(err)
	switch {
	case in(authCodes, code) || isAuthMessage(err.Error()):
		return errors.Wrap(err, errors.CodePlatformAuthError,
			fmt.Sprintf("AWS authentication error accessing %s '%s'", resourceType, resourceID))
	case in(notFoundCodes, code):
		return errors.Wrap(err, errors.CodeResourceNotFound,
			fmt.Sprintf("%s '%s' not found", resourceType, resourceID))
	case in(alreadyExistsCodes, code):
		return errors.Wrap(err, errors.CodeResourceAlreadyExists,
			fmt.Sprintf("%s '%s' already exists", resourceType, resourceID))
	case in(invalidCodes, code):
		return errors.Wrap(err, errors.CodeValidation,
			fmt.Sprintf("AWS rejected request for %s '%s'", resourceType, resourceID))
	case code == "VersionConflictException":
		return errors.Wrap(err, errors.CodeTransientExternal,
			fmt.Sprintf("%s '%s' was modified concurrently", resourceType, resourceID))
	}

	return errors.Wrap(err, errors.CodeTransientExternal,
		fmt.Sprintf("failed to access %s '%s'", resourceType, resourceID))
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) && apiErr != nil {
		return apiErr.ErrorCode()
	}
	if coded, ok := err.(interface{ ErrorCode() string }); ok {
		return coded.ErrorCode()
	}
	return ""
}

func isAuthMessage(msg string) bool {
	return strings.Contains(msg, "AuthFailure") ||
		strings.Contains(msg, "UnauthorizedOperation") ||
		strings.Contains(msg, "AccessDenied")
}

func in(set map[string]struct{}, code string) bool {
	if code == "" {
		return false
	}
	_, ok := set[code]
	return ok
}

// DefaultErrorHandler implements shared.ErrorHandler.
type DefaultErrorHandler struct{}

func (d *DefaultErrorHandler) Handle(service, operation string, err error, ctx context.Context) error {
	return HandleAWSError(service, operation, err, ctx)
}
