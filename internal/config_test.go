package internal

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Feed.EndpointURL = "https://feed.example.com/api"
	cfg.Feed.Username = "alice"
	cfg.Feed.Password = "s3cret"
	cfg.Feed.FeedID = "feed-9"
	return cfg
}

func TestValidConfigPasses(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFeedValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Feed.EndpointURL = "" }},
		{"bad endpoint", func(c *Config) { c.Feed.EndpointURL = "::not a url::" }},
		{"missing username", func(c *Config) { c.Feed.Username = "" }},
		{"missing password", func(c *Config) { c.Feed.Password = "" }},
		{"missing feed id", func(c *Config) { c.Feed.FeedID = "" }},
		{"page size too large", func(c *Config) { c.Feed.PageSize = 500 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestImportStatusValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Import.Status = "archived"
	if err := cfg.Validate(); err == nil {
		t.Error("archived must not be an import target status")
	}

	cfg = validConfig()
	cfg.Import.Status = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Import.Status != "draft" {
		t.Errorf("empty status = %q, want draft default", cfg.Import.Status)
	}
}

func TestScheduleValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Schedule.Enabled = true
	cfg.Schedule.Interval = Duration(10 * time.Second)
	if err := cfg.Validate(); err == nil {
		t.Error("sub-minute interval must be rejected")
	}

	cfg.Schedule.Interval = Duration(time.Hour)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// A short interval is fine while the scheduler is off.
	cfg.Schedule.Enabled = false
	cfg.Schedule.Interval = Duration(time.Second)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestAuthValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Mode = AuthModeToken
	if err := cfg.Validate(); err == nil {
		t.Error("token mode without a token must fail")
	}

	cfg.Auth.Token = "sekrit"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("AuthEnabled() = false in token mode")
	}

	cfg = validConfig()
	cfg.Auth.Mode = "basic"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown auth mode must fail")
	}

	cfg = validConfig()
	cfg.Auth.Mode = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Auth.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want normalised to disabled", cfg.Auth.Mode)
	}
}

func TestDurationUnmarshalYAML(t *testing.T) {
	var out struct {
		Timeout Duration `yaml:"timeout"`
	}
	if err := yaml.Unmarshal([]byte("timeout: 45s"), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Timeout.Std() != 45*time.Second {
		t.Errorf("timeout = %s", out.Timeout.Std())
	}

	if err := yaml.Unmarshal([]byte("timeout: 1500000000"), &out); err != nil {
		t.Fatalf("Unmarshal integer: %v", err)
	}
	if out.Timeout.Std() != 1500*time.Millisecond {
		t.Errorf("timeout = %s", out.Timeout.Std())
	}

	err := yaml.Unmarshal([]byte("timeout: soon"), &out)
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("err = %v, want invalid duration", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %s", cfg.App.HTTP.Address())
	}
	if !cfg.Feed.DeleteAfterDownload {
		t.Error("scheduled imports should acknowledge the queue by default")
	}
	if cfg.Feed.InsecureSkipVerify {
		t.Error("TLS verification must be on by default")
	}
	if cfg.Feed.RequestTimeout.Std() != 30*time.Second {
		t.Errorf("request timeout = %s", cfg.Feed.RequestTimeout.Std())
	}
	if cfg.Schedule.Enabled {
		t.Error("scheduler should be off by default")
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("auth should be off by default")
	}
}
