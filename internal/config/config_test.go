package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "SESSION_DURATION", "FORECAST_DAYS", "EMAIL_PROVIDER", "DIAGNOSTICS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want sqlite", cfg.DatabaseType)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
	if cfg.ForecastDays != 90 {
		t.Errorf("ForecastDays = %d, want 90", cfg.ForecastDays)
	}
	if !cfg.DiagnosticsEnabled {
		t.Error("DiagnosticsEnabled should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("FORECAST_DAYS", "30")
	t.Setenv("EMAIL_PROVIDER", "RESEND")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.SessionDuration != 2*time.Hour {
		t.Errorf("SessionDuration = %v, want 2h", cfg.SessionDuration)
	}
	if cfg.ForecastDays != 30 {
		t.Errorf("ForecastDays = %d, want 30", cfg.ForecastDays)
	}
	if cfg.EmailProvider != "resend" {
		t.Errorf("EmailProvider = %q, want resend", cfg.EmailProvider)
	}
	if cfg.AppBaseURL != "https://app.example.com" {
		t.Errorf("AppBaseURL = %q, want trailing slash trimmed", cfg.AppBaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "sqlite with noop email",
			cfg:     Config{DatabaseType: "sqlite", EmailProvider: "noop", ForecastDays: 90},
			wantErr: false,
		},
		{
			name:    "postgres without url",
			cfg:     Config{DatabaseType: "postgres", EmailProvider: "noop", ForecastDays: 90},
			wantErr: true,
		},
		{
			name:    "resend without key",
			cfg:     Config{DatabaseType: "sqlite", EmailProvider: "resend", ForecastDays: 90},
			wantErr: true,
		},
		{
			name:    "unknown database",
			cfg:     Config{DatabaseType: "oracle", EmailProvider: "noop", ForecastDays: 90},
			wantErr: true,
		},
		{
			name:    "zero forecast window",
			cfg:     Config{DatabaseType: "sqlite", EmailProvider: "noop"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
