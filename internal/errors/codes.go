package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeNotImplemented   Code = "NOT_IMPLEMENTED"
	CodeTimeout          Code = "TIMEOUT_ERROR"

	// Request handling
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeStructural   Code = "STRUCTURAL_ERROR"
	CodePolicyDenied Code = "POLICY_DENIED"

	// Registry / platform
	CodeTransientExternal     Code = "TRANSIENT_EXTERNAL_ERROR"
	CodePlatformAuthError     Code = "PLATFORM_AUTH_ERROR"
	CodeResourceNotFound      Code = "RESOURCE_NOT_FOUND"
	CodeResourceAlreadyExists Code = "RESOURCE_ALREADY_EXISTS"
	CodeInvariantViolation    Code = "INVARIANT_VIOLATION"
	CodeNotConverged          Code = "NOT_CONVERGED"
)

func (c Code) String() string {
	return string(c)
}
