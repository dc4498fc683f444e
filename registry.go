package lockauth

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/infodancer/lockauth/errors"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	// Type is the registered backend name (e.g., "pam", "passwd").
	Type string

	// Service is the service name the backend authenticates against.
	Service string

	// CredentialBackend is the path to credential storage, for backends
	// that keep their own.
	CredentialBackend string

	// Options contains backend-specific settings.
	Options map[string]string

	// Logger receives the backend's operational logs. Backends fall back
	// to slog.Default when it is nil.
	Logger *slog.Logger
}

// BackendFactory creates a Backend from its configuration.
type BackendFactory func(config BackendConfig) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]BackendFactory)
)

// RegisterBackend makes a backend available under name. It is meant to be
// called from init functions and panics if name is registered twice.
func RegisterBackend(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("lockauth: RegisterBackend factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("lockauth: RegisterBackend called twice for " + name)
	}
	registry[name] = factory
}

// OpenBackend creates the backend named by config.Type.
// Returns errors.ErrBackendNotRegistered if no such backend is registered.
func OpenBackend(config BackendConfig) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[config.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrBackendNotRegistered, config.Type)
	}
	return factory(config)
}

// RegisteredBackends returns the sorted names of all registered backends.
func RegisteredBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
