package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	iotregistry "github.com/olusolaa/fleet-provisioner/internal/adapters/platform/aws/iot"
	internalerrors "github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/log"
	"github.com/olusolaa/fleet-provisioner/mocks"
)

func newTestProvider(t *testing.T, stsClient *mocks.MockSTSClient, opts ...ProviderOption) *Provider {
	t.Helper()
	limiter := new(mocks.MockRateLimiter)
	limiter.On("Wait", mock.Anything, mock.Anything).Return(nil)
	opts = append([]ProviderOption{WithSTSClient(stsClient), WithRateLimiter(limiter)}, opts...)
	p, err := NewProvider(aws.Config{Region: "us-east-1"}, Settings{}, log.NewNop(), opts...)
	require.NoError(t, err)
	return p
}

func TestNewProvider_NilLogger(t *testing.T) {
	_, err := NewProvider(aws.Config{}, Settings{}, nil)

	require.Error(t, err)
	assert.True(t, internalerrors.Is(err, internalerrors.CodeConfigValidation))
}

func TestAccountID_ResolvedOnce(t *testing.T) {
	stsClient := new(mocks.MockSTSClient)
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).
		Return(&sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil).Once()
	p := newTestProvider(t, stsClient)

	for i := 0; i < 3; i++ {
		acc, err := p.AccountID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "123456789012", acc)
	}
	stsClient.AssertNumberOfCalls(t, "GetCallerIdentity", 1)
}

func TestAccountID_Errors(t *testing.T) {
	stsClient := new(mocks.MockSTSClient)
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).
		Return(nil, errors.New("AccessDenied: not authorized")).Once()
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).
		Return(&sts.GetCallerIdentityOutput{}, nil).Once()
	p := newTestProvider(t, stsClient)

	_, err := p.AccountID(context.Background())
	assert.True(t, internalerrors.Is(err, internalerrors.CodePlatformAuthError))

	_, err = p.AccountID(context.Background())
	assert.True(t, internalerrors.Is(err, internalerrors.CodeTransientExternal))
}

func TestForRegion_CachesPerRegion(t *testing.T) {
	var built []string
	factory := func(cfg aws.Config) iotregistry.IoTClientInterface {
		built = append(built, cfg.Region)
		return new(mocks.MockIoTClient)
	}
	p := newTestProvider(t, new(mocks.MockSTSClient), WithIoTClientFactory(factory))

	def, err := p.ForRegion(context.Background(), "")
	require.NoError(t, err)
	again, err := p.ForRegion(context.Background(), "us-east-1")
	require.NoError(t, err)
	eu, err := p.ForRegion(context.Background(), "eu-west-1")
	require.NoError(t, err)

	assert.Same(t, def, again)
	assert.NotSame(t, def, eu)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, built)
	assert.Equal(t, "eu-west-1", eu.(*iotregistry.Registry).Region())
}

func TestForRegion_NoRegion(t *testing.T) {
	p, err := NewProvider(aws.Config{}, Settings{}, log.NewNop(), WithSTSClient(new(mocks.MockSTSClient)))
	require.NoError(t, err)

	_, err = p.ForRegion(context.Background(), "")

	assert.True(t, internalerrors.Is(err, internalerrors.CodeConfigValidation))
}
