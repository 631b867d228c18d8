package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds references to analysis clients. It supports
// config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Analyzer
	logger  *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Analyzer),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers an analysis client by name.
func (r *Registry) Register(name string, client Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	if r.logger != nil {
		r.logger.Info("registered analysis client", "name", name)
	}
}

// Unregister removes an analysis client by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, name)
	if r.logger != nil {
		r.logger.Info("unregistered analysis client", "name", name)
	}
}

// Get returns an analysis client by name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("analysis client not found: %s", name)
	}
	return client, nil
}

// Has checks if an analysis client is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// List returns all registered client names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// ProviderConfig defines one client to instantiate from config.
type ProviderConfig struct {
	Type     string // "gemini", "anthropic", "openai"
	Model    string
	APIKey   string // resolved API key
	Endpoint string // optional base URL override
	Timeout  time.Duration
	Enabled  bool
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
}

// NewRegistryFromConfig creates a registry with clients based on
// configuration. Only enabled providers are registered; a missing API
// key surfaces later as ErrNoAPIKey rather than a silent absence.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration. Providers
// that are no longer configured are unregistered; changed providers
// are rebuilt.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled {
			continue
		}
		client := createClient(provCfg)
		if client == nil {
			if r.logger != nil {
				r.logger.Warn("unknown provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		want[name] = true

		_, existed := r.clients[name]
		r.clients[name] = client
		if r.logger != nil {
			if existed {
				r.logger.Info("updated analysis client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered analysis client", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.clients {
		if !want[name] {
			delete(r.clients, name)
			if r.logger != nil {
				r.logger.Info("unregistered analysis client", "name", name)
			}
		}
	}
}

// createClient instantiates a client for the given provider type.
func createClient(cfg ProviderConfig) Analyzer {
	switch cfg.Type {
	case GeminiName:
		return NewGeminiClient(GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.Endpoint,
			Timeout: cfg.Timeout,
		})
	case AnthropicName:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.Endpoint,
			Timeout: cfg.Timeout,
		})
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.Endpoint,
			Timeout: cfg.Timeout,
		})
	default:
		return nil
	}
}
