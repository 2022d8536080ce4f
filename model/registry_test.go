package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	caps := r.ListCapabilities()
	if len(caps) != 2 {
		t.Errorf("expected 2 capabilities, got %d", len(caps))
	}
	if err := r.Validate(); err != nil {
		t.Errorf("default registry should validate: %v", err)
	}

	ep := r.GetEndpoint("gemini-pro")
	if ep == nil {
		t.Fatal("expected gemini-pro endpoint")
	}
	if len(ep.SafetySettings) != 4 {
		t.Errorf("expected 4 safety settings, got %d", len(ep.SafetySettings))
	}
	for _, s := range ep.SafetySettings {
		if s.Threshold != BlockNone {
			t.Errorf("category %s threshold = %s, want BLOCK_NONE", s.Category, s.Threshold)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		capability Capability
		expected   string
	}{
		{CapabilityQuestions, "gemini-pro"},
		{CapabilityOntology, "gemini-pro"},
		{Capability("unknown"), "gemini-pro"},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			if got := r.Resolve(tt.capability); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.capability, got, tt.expected)
			}
		})
	}
}

func TestRegistryGetFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()

	chain := r.GetFallbackChain(CapabilityOntology)
	if len(chain) != 2 || chain[0] != "gemini-pro" || chain[1] != "gemini-flash" {
		t.Errorf("unexpected chain: %v", chain)
	}

	chain = r.GetFallbackChain(Capability("unknown"))
	if len(chain) != 1 || chain[0] != "gemini-pro" {
		t.Errorf("unknown capability should fall back to default, got %v", chain)
	}
}

func TestCapabilityForStage(t *testing.T) {
	if c := CapabilityForStage("question-generator"); c != CapabilityQuestions {
		t.Errorf("question-generator -> %s", c)
	}
	if c := CapabilityForStage("something-else"); c != CapabilityOntology {
		t.Errorf("unknown stage -> %s", c)
	}
	if ParseCapability("questions") != CapabilityQuestions {
		t.Error("ParseCapability(questions) failed")
	}
	if ParseCapability("coding") != "" {
		t.Error("ParseCapability should reject unknown capabilities")
	}
}

func TestRegistryPin(t *testing.T) {
	r := NewDefaultRegistry()
	r.Pin("claude-sonnet")

	chain := r.GetFallbackChain(CapabilityQuestions)
	want := []string{"claude-sonnet", "gemini-pro", "gemini-flash"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %s, want %s", i, chain[i], want[i])
		}
	}
	if r.Resolve(Capability("unknown")) != "claude-sonnet" {
		t.Error("Pin should also change the default")
	}
}

func TestRegistryValidate(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetCapability(CapabilityQuestions, &CapabilityConfig{Preferred: []string{"missing"}})
	if err := r.Validate(); err == nil {
		t.Error("expected error for unknown endpoint reference")
	}

	r = NewDefaultRegistry()
	r.SetEndpoint("broken", &EndpointConfig{Model: "x"})
	if err := r.Validate(); err == nil {
		t.Error("expected error for endpoint without provider")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	data := `
endpoints:
  local:
    provider: ollama
    url: http://localhost:11434/v1
    model: llama3.2
capabilities:
  questions:
    preferred: [local]
    fallback: [gemini-flash]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if r.Resolve(CapabilityQuestions) != "local" {
		t.Errorf("questions resolved to %s", r.Resolve(CapabilityQuestions))
	}
	if r.Resolve(CapabilityOntology) != "gemini-pro" {
		t.Error("unconfigured capabilities should keep their defaults")
	}
	if ep := r.GetEndpoint("local"); ep == nil || ep.URL != "http://localhost:11434/v1" {
		t.Errorf("local endpoint = %+v", ep)
	}
}

func TestCircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.healthTracker().now = func() time.Time { return now }

	if r.GetEndpointHealth("gemini-pro") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointFailure("gemini-pro")
	if !r.IsEndpointAvailable("gemini-pro") {
		t.Error("expected endpoint to stay available after 1 failure")
	}

	r.MarkEndpointFailure("gemini-pro")
	if r.IsEndpointAvailable("gemini-pro") {
		t.Error("expected circuit to open after 2 failures")
	}
	chain := r.GetAvailableFallbackChain(CapabilityOntology)
	if len(chain) != 1 || chain[0] != "gemini-flash" {
		t.Errorf("available chain = %v", chain)
	}

	now = now.Add(2 * time.Minute)
	if !r.IsEndpointAvailable("gemini-pro") {
		t.Error("expected half-open circuit after recovery timeout")
	}

	r.MarkEndpointSuccess("gemini-pro")
	h := r.GetEndpointHealth("gemini-pro")
	if h == nil || h.CircuitOpen || h.FailureCount != 0 {
		t.Errorf("health after success = %+v", h)
	}
}

func TestAvailableFallbackChainAllDown(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	r.MarkEndpointFailure("gemini-pro")
	r.MarkEndpointFailure("gemini-flash")

	if chain := r.GetAvailableFallbackChain(CapabilityOntology); len(chain) != 2 {
		t.Errorf("expected full chain when everything is down, got %v", chain)
	}

	r.ResetEndpointHealth("gemini-pro")
	if !r.IsEndpointAvailable("gemini-pro") {
		t.Error("reset endpoint should be available")
	}
}
