package config

import (
	"os"
	"testing"
)

func clearEnv() {
	os.Unsetenv("APP_PORT")
	os.Unsetenv("APP_ENV")
	os.Unsetenv("CHAT_ADMIN_NAME")
	os.Unsetenv("CHAT_HISTORY_LIMIT")
	os.Unsetenv("CHAT_ANNOUNCE")
	os.Unsetenv("CHAT_PERSISTENT_BANS")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Load() Port = %v, want 8080", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Errorf("Load() Env = %v, want dev", cfg.Env)
	}
	if cfg.AdminName != "Geo" {
		t.Errorf("Load() AdminName = %v, want Geo", cfg.AdminName)
	}
	if cfg.HistoryLimit != 500 {
		t.Errorf("Load() HistoryLimit = %v, want 500", cfg.HistoryLimit)
	}
	if !cfg.Announce {
		t.Error("Load() Announce = false, want true")
	}
	if cfg.PersistentBans {
		t.Error("Load() PersistentBans = true, want false")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("APP_PORT", "9090")
	os.Setenv("APP_ENV", "prod")
	os.Setenv("CHAT_ADMIN_NAME", "overseer")
	os.Setenv("CHAT_HISTORY_LIMIT", "50")
	os.Setenv("CHAT_ANNOUNCE", "false")
	os.Setenv("CHAT_PERSISTENT_BANS", "true")
	defer clearEnv()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Load() Port = %v, want 9090", cfg.Port)
	}
	if cfg.Env != "prod" {
		t.Errorf("Load() Env = %v, want prod", cfg.Env)
	}
	if cfg.AdminName != "overseer" {
		t.Errorf("Load() AdminName = %v, want overseer", cfg.AdminName)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("Load() HistoryLimit = %v, want 50", cfg.HistoryLimit)
	}
	if cfg.Announce {
		t.Error("Load() Announce = true, want false")
	}
	if !cfg.PersistentBans {
		t.Error("Load() PersistentBans = false, want true")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	os.Setenv("CHAT_HISTORY_LIMIT", "invalid")
	os.Setenv("CHAT_ANNOUNCE", "not-a-bool")
	defer clearEnv()

	cfg := Load()

	// Should fall back to defaults
	if cfg.HistoryLimit != 500 {
		t.Errorf("Load() HistoryLimit = %v, want 500 (default)", cfg.HistoryLimit)
	}
	if !cfg.Announce {
		t.Error("Load() Announce = false, want true (default)")
	}
}

func TestLoad_NegativeHistoryLimit(t *testing.T) {
	os.Setenv("CHAT_HISTORY_LIMIT", "-10")
	defer clearEnv()

	cfg := Load()
	if cfg.HistoryLimit != 500 {
		t.Errorf("Load() HistoryLimit = %v, want 500 (default)", cfg.HistoryLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid dev config",
			cfg:     Config{Port: "8080", Env: "dev", AdminName: "Geo"},
			wantErr: false,
		},
		{
			name:    "valid prod config",
			cfg:     Config{Port: "8080", Env: "prod", AdminName: "overseer"},
			wantErr: false,
		},
		{
			name:    "empty port",
			cfg:     Config{Port: "", Env: "dev", AdminName: "Geo"},
			wantErr: true,
		},
		{
			name:    "empty admin name",
			cfg:     Config{Port: "8080", Env: "dev", AdminName: ""},
			wantErr: true,
		},
		{
			name:    "default admin name in prod",
			cfg:     Config{Port: "8080", Env: "prod", AdminName: "Geo"},
			wantErr: true,
		},
		{
			name:    "default admin name in test env",
			cfg:     Config{Port: "8080", Env: "test", AdminName: "Geo"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
