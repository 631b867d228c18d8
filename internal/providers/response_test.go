package providers

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"themes":["Fate"]}`,
			want:  `{"themes":["Fate"]}`,
		},
		{
			name:  "fenced block",
			input: "```json\n{\"themes\":[\"Fate\"]}\n```",
			want:  `{"themes":["Fate"]}`,
		},
		{
			name:  "prose around object",
			input: "Here is the analysis you asked for:\n{\"themes\":[\"Fate\"]}\nLet me know if you need more.",
			want:  `{"themes":["Fate"]}`,
		},
		{
			name:  "nested braces inside prose",
			input: `Sure! {"characters":[{"name":"Pip","description":"Cabin boy."}]} Done.`,
			want:  `{"characters":[{"name":"Pip","description":"Cabin boy."}]}`,
		},
		{
			name:    "no object at all",
			input:   "I am unable to help with that.",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"themes":["Fate"`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("error = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			var wantV, gotV any
			if err := json.Unmarshal([]byte(tc.want), &wantV); err != nil {
				t.Fatalf("bad want fixture: %v", err)
			}
			if err := json.Unmarshal(got, &gotV); err != nil {
				t.Fatalf("result is not valid JSON: %v", err)
			}
		})
	}
}
