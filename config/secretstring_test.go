package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	yaml "gopkg.in/yaml.v3"
)

func TestSecretString_Marshal(t *testing.T) {
	tests := []struct {
		name     string
		input    SecretString
		wantJSON string
		wantYAML string
		wantStr  string
	}{
		{"empty", "", "null", "null\n", ""},
		{"short", "x", `"` + SecretStringValue + `"`, SecretStringValue + "\n", SecretStringValue},
		{"api key", "sk-ant-api03-abcdef", `"` + SecretStringValue + `"`, SecretStringValue + "\n", SecretStringValue},
		{"special characters", `p@ss"w\ord`, `"` + SecretStringValue + `"`, SecretStringValue + "\n", SecretStringValue},
		{"unicode", "пароль", `"` + SecretStringValue + `"`, SecretStringValue + "\n", SecretStringValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := json.Marshal(tt.input)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(j) != tt.wantJSON {
				t.Errorf("json = %s, want %s", j, tt.wantJSON)
			}
			y, err := yaml.Marshal(tt.input)
			if err != nil {
				t.Fatalf("yaml.Marshal() error = %v", err)
			}
			if tt.input == "" && string(y) != tt.wantYAML || tt.input != "" && !strings.Contains(string(y), SecretStringValue) {
				t.Errorf("yaml = %q, want %q", y, tt.wantYAML)
			}
			if got := tt.input.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
			if got := fmt.Sprintf("%v", tt.input); got != tt.wantStr {
				t.Errorf("Sprintf() = %q, want %q", got, tt.wantStr)
			}
			if tt.input.Value() != string(tt.input) {
				t.Errorf("Value() = %q, want %q", tt.input.Value(), tt.input)
			}
			if tt.input.IsSet() != (tt.input != "") {
				t.Errorf("IsSet() = %v", tt.input.IsSet())
			}
		})
	}
}

func TestSecretString_InDetectionConfig(t *testing.T) {
	cfg := DetectionConfig{
		Engine:   "remote",
		Endpoint: "https://example.com/v1/messages",
		Model:    "model",
		APIKey:   "sk-very-secret",
	}

	y, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	j, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for name, out := range map[string]string{"yaml": string(y), "json": string(j), "printf": fmt.Sprintf("%+v", cfg)} {
		if strings.Contains(out, "sk-very-secret") {
			t.Errorf("%s output leaks api key: %s", name, out)
		}
		if !strings.Contains(out, SecretStringValue) {
			t.Errorf("%s output should contain mask: %s", name, out)
		}
	}
}

func TestSecretString_Unmarshal(t *testing.T) {
	var cfg DetectionConfig
	if err := yaml.Unmarshal([]byte("api_key: sk-from-file\n"), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if cfg.APIKey.Value() != "sk-from-file" {
		t.Errorf("APIKey = %q, want sk-from-file", cfg.APIKey.Value())
	}
}

func TestSecretString_Logged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	zap.New(core).Info("Detection configured", zap.Stringer("key", SecretString("sk-very-secret")))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["key"]; got != SecretStringValue {
		t.Errorf("logged key = %v, want %s", got, SecretStringValue)
	}
}
