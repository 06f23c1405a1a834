package memory

import (
	"context"
	"sync"

	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
)

// Factory hands out one in-memory registry per region.
type Factory struct {
	mu            sync.Mutex
	defaultRegion string
	accountID     string
	registries    map[string]*Registry
}

var _ ports.GroupRegistryFactory = (*Factory)(nil)

func NewFactory(defaultRegion, accountID string) *Factory {
	return &Factory{
		defaultRegion: defaultRegion,
		accountID:     accountID,
		registries:    make(map[string]*Registry),
	}
}

func (f *Factory) ForRegion(_ context.Context, region string) (ports.GroupRegistry, error) {
	return f.Region(region), nil
}

// Region returns the concrete registry for region, for test setup and
// inspection.
func (f *Factory) Region(region string) *Registry {
	if region == "" {
		region = f.defaultRegion
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.registries[region]
	if !ok {
		reg = NewRegistry(region, f.accountID)
		f.registries[region] = reg
	}
	return reg
}
