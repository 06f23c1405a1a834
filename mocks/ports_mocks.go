package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
)

// MockLogger is a mock implementation of ports.Logger. Variadic arguments
// are recorded as a single []interface{} value.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debugf(ctx context.Context, format string, args ...any) {
	m.Called(ctx, format, args)
}

func (m *MockLogger) Infof(ctx context.Context, format string, args ...any) {
	m.Called(ctx, format, args)
}

func (m *MockLogger) Warnf(ctx context.Context, format string, args ...any) {
	m.Called(ctx, format, args)
}

func (m *MockLogger) Errorf(ctx context.Context, err error, format string, args ...any) {
	m.Called(ctx, err, format, args)
}

func (m *MockLogger) WithFields(fields map[string]any) ports.Logger {
	args := m.Called(fields)
	if l, ok := args.Get(0).(ports.Logger); ok {
		return l
	}
	return m
}

// AllowAll registers permissive expectations for every logging method.
func (m *MockLogger) AllowAll() *MockLogger {
	m.On("Debugf", mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("Infof", mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("Warnf", mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("Errorf", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("WithFields", mock.Anything).Maybe().Return(m)
	return m
}

// MockGroupRegistry is a mock implementation of ports.GroupRegistry
type MockGroupRegistry struct {
	mock.Mock
}

func (m *MockGroupRegistry) Describe(ctx context.Context, name string) (*domain.ThingGroup, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ThingGroup), args.Error(1)
}

func (m *MockGroupRegistry) Create(ctx context.Context, spec domain.GroupSpec) (*domain.ThingGroup, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ThingGroup), args.Error(1)
}

func (m *MockGroupRegistry) Update(ctx context.Context, spec domain.GroupSpec, expectedVersion int64) error {
	args := m.Called(ctx, spec, expectedVersion)
	return args.Error(0)
}

func (m *MockGroupRegistry) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockRegistryFactory is a mock implementation of ports.GroupRegistryFactory
type MockRegistryFactory struct {
	mock.Mock
}

func (m *MockRegistryFactory) ForRegion(ctx context.Context, region string) (ports.GroupRegistry, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.GroupRegistry), args.Error(1)
}

// MockReconciler is a mock implementation of ports.Reconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Create(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.LifecycleResult), args.Error(1)
}

func (m *MockReconciler) Update(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.LifecycleResult), args.Error(1)
}

func (m *MockReconciler) Delete(ctx context.Context, event *domain.LifecycleEvent) (domain.LifecycleResult, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.LifecycleResult), args.Error(1)
}

// MockAdmissionEvaluator is a mock implementation of ports.AdmissionEvaluator
type MockAdmissionEvaluator struct {
	mock.Mock
}

func (m *MockAdmissionEvaluator) Evaluate(ctx context.Context, req *domain.ProvisioningRequest) (domain.AdmissionVerdict, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.AdmissionVerdict), args.Error(1)
}
