package config

// Config holds xray configuration.
// Stored at: ~/.xray/config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Sync      SyncCfg                `mapstructure:"sync" yaml:"sync"`
}

// ProviderCfg configures an analysis provider.
type ProviderCfg struct {
	Type     string `mapstructure:"type" yaml:"type"`         // "gemini", "anthropic", "openai"
	Model    string `mapstructure:"model" yaml:"model"`       // Model name
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`   // API key (supports ${ENV_VAR} syntax)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"` // Base URL override (self-hosted openai variant)
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default analysis settings.
type DefaultsCfg struct {
	Provider      string `mapstructure:"provider" yaml:"provider"`             // Default provider name
	ChunkSize     int    `mapstructure:"chunk_size" yaml:"chunk_size"`         // Chunk byte size
	TargetPercent int    `mapstructure:"target_percent" yaml:"target_percent"` // Default analysis target
}

// SyncCfg configures the remote WebDAV sync target.
type SyncCfg struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"` // supports ${ENV_VAR} syntax
	Folder   string `mapstructure:"folder" yaml:"folder"`
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.5-flash-lite",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: true,
			},
			"anthropic": {
				Type:    "anthropic",
				Model:   "claude-haiku-4-5",
				APIKey:  "${ANTHROPIC_API_KEY}",
				Enabled: false,
			},
			"local": {
				Type:     "openai",
				Model:    "qwen2.5:14b",
				Endpoint: "http://localhost:11434/v1",
				Enabled:  false,
			},
		},
		Defaults: DefaultsCfg{
			Provider:      "gemini",
			ChunkSize:     25000,
			TargetPercent: 100,
		},
		Sync: SyncCfg{
			Folder:  "xray",
			Enabled: false,
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
