package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("default workers = %d, want 4", cfg.Workers)
	}
	if cfg.Provider.RateLimit != 5 {
		t.Errorf("default rate limit = %d, want 5", cfg.Provider.RateLimit)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("default cache ttl = %d, want 24", cfg.Cache.TTLHours)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finstat.yaml")
	body := `
provider:
  base_url: https://statements.internal.example.com
  rate_limit: 2
  timeout_seconds: 10
workers: 8
cache:
  dir: /tmp/stmt-cache
  ttl_hours: 6
output_dir: reports
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	if cfg.Provider.BaseURL != "https://statements.internal.example.com" {
		t.Errorf("base url = %q", cfg.Provider.BaseURL)
	}
	if cfg.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Workers)
	}
	if cfg.Cache.Dir != "/tmp/stmt-cache" {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	// Fields the file omits keep their defaults.
	if cfg.DirectoryCSV != "data/company_sector_map.csv" {
		t.Errorf("directory csv = %q", cfg.DirectoryCSV)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadExplicitFileMissingIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	if err := os.WriteFile(path, []byte("workers: 12\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load via env: %v", err)
	}
	if cfg.Workers != 12 {
		t.Errorf("workers = %d, want 12", cfg.Workers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"bad base url", func(c *Config) { c.Provider.BaseURL = "not a url" }},
		{"rate limit too high", func(c *Config) { c.Provider.RateLimit = 500 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTimeoutAndTTLHelpers(t *testing.T) {
	cfg := Default()
	if got := cfg.Provider.Timeout().Seconds(); got != 30 {
		t.Errorf("timeout = %vs, want 30s", got)
	}
	if got := cfg.Cache.TTL().Hours(); got != 24 {
		t.Errorf("ttl = %vh, want 24h", got)
	}
}
