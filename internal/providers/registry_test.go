package providers

import (
	"sort"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.Register("mock", mock)

		got, err := r.Get("mock")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != mock {
			t.Error("Get() returned a different client")
		}
		if !r.Has("mock") {
			t.Error("Has() = false, want true")
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Get("nope"); err == nil {
			t.Error("Get() on unknown name should error")
		}
	})

	t.Run("from config", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"gemini":    {Type: "gemini", APIKey: "k", Enabled: true},
				"anthropic": {Type: "anthropic", APIKey: "k", Enabled: true},
				"disabled":  {Type: "openai", APIKey: "k", Enabled: false},
				"bogus":     {Type: "bogus", APIKey: "k", Enabled: true},
			},
		})

		names := r.List()
		sort.Strings(names)
		if len(names) != 2 || names[0] != "anthropic" || names[1] != "gemini" {
			t.Errorf("List() = %v, want [anthropic gemini]", names)
		}
	})

	t.Run("reload removes dropped providers", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"gemini": {Type: "gemini", APIKey: "k", Enabled: true},
				"openai": {Type: "openai", APIKey: "k", Enabled: true},
			},
		})
		r.Reload(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"gemini": {Type: "gemini", APIKey: "k2", Enabled: true},
			},
		})

		if r.Has("openai") {
			t.Error("openai should have been unregistered")
		}
		if !r.Has("gemini") {
			t.Error("gemini should survive reload")
		}
	})
}
