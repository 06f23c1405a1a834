package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/mock"

	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
)

// MockSTSClient is a mock implementation of the STS client
type MockSTSClient struct {
	mock.Mock
}

func (m *MockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.GetCallerIdentityOutput), args.Error(1)
}

// MockIoTClient is a mock implementation of the IoT control plane client
type MockIoTClient struct {
	mock.Mock
}

func (m *MockIoTClient) DescribeThingGroup(ctx context.Context, params *iot.DescribeThingGroupInput, optFns ...func(*iot.Options)) (*iot.DescribeThingGroupOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.DescribeThingGroupOutput), args.Error(1)
}

func (m *MockIoTClient) CreateThingGroup(ctx context.Context, params *iot.CreateThingGroupInput, optFns ...func(*iot.Options)) (*iot.CreateThingGroupOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.CreateThingGroupOutput), args.Error(1)
}

func (m *MockIoTClient) UpdateThingGroup(ctx context.Context, params *iot.UpdateThingGroupInput, optFns ...func(*iot.Options)) (*iot.UpdateThingGroupOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.UpdateThingGroupOutput), args.Error(1)
}

func (m *MockIoTClient) DeleteThingGroup(ctx context.Context, params *iot.DeleteThingGroupInput, optFns ...func(*iot.Options)) (*iot.DeleteThingGroupOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*iot.DeleteThingGroupOutput), args.Error(1)
}

// MockRateLimiter is a mock implementation of shared.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Wait(ctx context.Context, logger ports.Logger) error {
	args := m.Called(ctx, logger)
	return args.Error(0)
}

// MockErrorHandler is a mock implementation of shared.ErrorHandler
type MockErrorHandler struct {
	mock.Mock
}

func (m *MockErrorHandler) Handle(service, operation string, err error, ctx context.Context) error {
	args := m.Called(service, operation, err, ctx)
	return args.Error(0)
}
