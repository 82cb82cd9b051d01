package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/secretsanta/internal/platform/otel"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
		ratio    string
	}{
		{name: "noop when endpoint empty"},
		{name: "noop when explicitly disabled", endpoint: "http://localhost:4318", enabled: "false"},
		// Non-routable address so no export actually happens.
		{name: "provider when endpoint set", endpoint: "http://192.0.2.1:4318"},
		{name: "provider with sample ratio", endpoint: "http://192.0.2.1:4318", ratio: "0.25"},
		{name: "ratio ignored when disabled", ratio: "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SECRETSANTA_OTEL_ENDPOINT", tt.endpoint)
			t.Setenv("SECRETSANTA_OTEL_ENABLED", tt.enabled)
			t.Setenv("SECRETSANTA_OTEL_SAMPLE_RATIO", tt.ratio)

			shutdown, err := otel.Setup(context.Background(), "exchange-test")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown error: %v", err)
			}
		})
	}
}

func TestSetupRejectsBadSampleRatio(t *testing.T) {
	t.Setenv("SECRETSANTA_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("SECRETSANTA_OTEL_ENABLED", "")
	for _, ratio := range []string{"half", "0", "1.5", "-0.1"} {
		t.Setenv("SECRETSANTA_OTEL_SAMPLE_RATIO", ratio)
		if _, err := otel.Setup(context.Background(), "exchange-test"); err == nil {
			t.Errorf("ratio %q: expected error", ratio)
		}
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	t.Setenv("SECRETSANTA_OTEL_ENDPOINT", "")
	t.Setenv("SECRETSANTA_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "noop-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
