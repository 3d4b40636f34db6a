package otp

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// The provider registry is populated at package init and frozen before
// startup wiring runs. Selection is config-driven; an unknown name falls back
// to the disabled stub with a warning instead of crashing the process.
var (
	registryMu sync.RWMutex
	registry   = map[string]func() Provider{}
)

// RegisterProvider makes a backend selectable by name. Call from init.
func RegisterProvider(name string, factory func() Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// ProviderNames lists the registered backends, sorted, for startup logging.
func ProviderNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectProvider resolves the configured backend, falling back to the
// disabled stub when the name is unknown or empty.
func SelectProvider(name string, log zerolog.Logger) Provider {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		log.Warn().
			Str("provider", name).
			Strs("registered", ProviderNames()).
			Msg("unknown otp provider, falling back to disabled stub")
		return newStubProvider()
	}
	return factory()
}

func init() {
	RegisterProvider("sandbox", func() Provider { return newSandboxProvider() })
	RegisterProvider("disabled", func() Provider { return newStubProvider() })
}
