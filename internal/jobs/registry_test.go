package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestNewRegistry(t *testing.T) {
	valid := JobConfig{
		Type:     TypeSendEmail,
		Endpoint: "/jobs/send-email",
		Retries:  3,
		Timeout:  30 * time.Second,
	}

	tests := []struct {
		name    string
		configs []JobConfig
		wantErr bool
	}{
		{
			name:    "Valid",
			configs: []JobConfig{valid},
		},
		{
			name:    "Empty Registry",
			configs: nil,
		},
		{
			name: "Duplicate Type",
			configs: []JobConfig{
				valid,
				{Type: TypeSendEmail, Endpoint: "/jobs/other", Retries: 1, Timeout: time.Second},
			},
			wantErr: true,
		},
		{
			name:    "Empty Type",
			configs: []JobConfig{{Endpoint: "/jobs/x", Retries: 1, Timeout: time.Second}},
			wantErr: true,
		},
		{
			name:    "Empty Endpoint",
			configs: []JobConfig{{Type: TypeSendEmail, Retries: 1, Timeout: time.Second}},
			wantErr: true,
		},
		{
			name:    "Negative Retries",
			configs: []JobConfig{{Type: TypeSendEmail, Endpoint: "/jobs/x", Retries: -1, Timeout: time.Second}},
			wantErr: true,
		},
		{
			name:    "Zero Timeout",
			configs: []JobConfig{{Type: TypeSendEmail, Endpoint: "/jobs/x", Retries: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.configs...)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegistryConfig(t *testing.T) {
	reg := defaultRegistry(t)

	cfg, err := reg.Config(TypeProcessWebhook)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Endpoint != "/jobs/process-webhook" {
		t.Errorf("endpoint: got %q", cfg.Endpoint)
	}
	if cfg.Retries != 5 {
		t.Errorf("retries: got %d want 5", cfg.Retries)
	}

	_, err = reg.Config(JobType("bulk-import"))
	if !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("expected ErrUnregisteredType, got %v", err)
	}
}

func TestRegistryTypes(t *testing.T) {
	reg := defaultRegistry(t)

	types := reg.Types()
	if len(types) != 3 {
		t.Fatalf("types: got %d want 3", len(types))
	}

	// Sorted, so wiring and CLI output are deterministic.
	want := []JobType{TypeGenerateReport, TypeProcessWebhook, TypeSendEmail}
	for i, typ := range want {
		if types[i] != typ {
			t.Errorf("types[%d]: got %q want %q", i, types[i], typ)
		}
	}
}

func TestDefaultConfigs(t *testing.T) {
	for _, cfg := range DefaultConfigs() {
		if cfg.Timeout <= 0 {
			t.Errorf("%s: non-positive timeout", cfg.Type)
		}
		if cfg.Description == "" {
			t.Errorf("%s: missing description", cfg.Type)
		}
	}
}
