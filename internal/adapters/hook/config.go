package hook

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/olusolaa/fleet-provisioner/internal/errors"
)

const (
	// DefaultTimeout leaves headroom under the provisioning service's 30s
	// limit for the hook function.
	DefaultTimeout = 25 * time.Second

	IdentityClientID           = "clientId"
	IdentityClaimCertificateID = "claimCertificateId"
	identityParameterPrefix    = "parameter:"
)

type Config struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// IdentitySource selects the claim identity: clientId, claimCertificateId
	// or parameter:<Key>.
	IdentitySource string `mapstructure:"identity_source" validate:"required"`
}

func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, IdentitySource: IdentityClientID}
}

type identityFunc func(req *events.IoTPreProvisionHookRequest) string

func identityFor(source string) (identityFunc, error) {
	switch {
	case source == "" || source == IdentityClientID:
		return func(req *events.IoTPreProvisionHookRequest) string { return req.ClientID }, nil
	case source == IdentityClaimCertificateID:
		return func(req *events.IoTPreProvisionHookRequest) string { return req.ClaimCertificateID }, nil
	case strings.HasPrefix(source, identityParameterPrefix):
		key := strings.TrimPrefix(source, identityParameterPrefix)
		if key == "" {
			break
		}
		return func(req *events.IoTPreProvisionHookRequest) string { return req.Parameters[key] }, nil
	}
	return nil, errors.NewUserFacing(errors.CodeConfigValidation,
		fmt.Sprintf("unsupported hook identity source %q", source),
		"Use clientId, claimCertificateId or parameter:<Key>.")
}
