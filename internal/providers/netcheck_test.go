package providers

import "testing"

func TestIsPrivateEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"http://localhost:8080", true},
		{"http://127.0.0.1:9999/v1", true},
		{"http://192.168.1.10:11434", true},
		{"http://10.0.0.5", true},
		{"https://generativelanguage.googleapis.com", false},
		{"https://api.anthropic.com", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := isPrivateEndpoint(tc.endpoint); got != tc.want {
			t.Errorf("isPrivateEndpoint(%q) = %v, want %v", tc.endpoint, got, tc.want)
		}
	}
}
