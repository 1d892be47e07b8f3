package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cliqcrawl/internal/config"
	"github.com/nao1215/cliqcrawl/internal/model"
)

// parsedCrawlCmd returns the crawl subcommand with args parsed.
func parsedCrawlCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	root := NewRootCmd()
	cmd, _, err := root.Find([]string{"crawl"})
	if err != nil {
		t.Fatalf("Find(crawl) error = %v", err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".cliqcrawl")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw       string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"X-Test=1", "X-Test", "1", false},
		{"Authorization: Bearer a=b", "Authorization", "Bearer a=b", false},
		{" Accept = text/html ", "Accept", "text/html", false},
		{"X-Empty=", "X-Empty", "", false},
		{"novalue", "", "", true},
		{"=value", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		name, value, err := parseHeader(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHeader(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, errInvalidHeader) {
				t.Errorf("parseHeader(%q) error = %v, want errInvalidHeader", tt.raw, err)
			}
			continue
		}
		if name != tt.wantName || value != tt.wantValue {
			t.Errorf("parseHeader(%q) = %q, %q; want %q, %q", tt.raw, name, value, tt.wantName, tt.wantValue)
		}
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, `
crawl:
  threads: 7
  retries: 0
  mode: page
  timeout: 10s
defaults:
  cookie: "from=file"
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Parallel()

		cmd := parsedCrawlCmd(t, "--config", cfgPath)
		cfg, err := loadConfig(cmd, []string{"https://www.tatacliq.com/x/p-mp1"})
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.Threads != 7 || cfg.MaxRetries != 0 || cfg.Mode != model.ModePage || cfg.Timeout != 10*time.Second {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if cfg.Cookie != "from=file" {
			t.Errorf("Cookie = %q, want from=file", cfg.Cookie)
		}
		if cfg.Output != config.DefaultOutput {
			t.Errorf("Output = %q, want default", cfg.Output)
		}
		if len(cfg.Inputs) != 1 {
			t.Errorf("Inputs = %v", cfg.Inputs)
		}
	})

	t.Run("flags override file", func(t *testing.T) {
		t.Parallel()

		cmd := parsedCrawlCmd(t,
			"--config", cfgPath,
			"--threads", "3",
			"--mode", "API",
			"--cookie", "from=flag",
			"-H", "X-One=1",
			"-H", "X-Two: 2",
			"--backoff", "fixed",
		)
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if cfg.Threads != 3 || cfg.Mode != model.ModeAPI || cfg.Backoff != model.BackoffFixed {
			t.Errorf("flags not applied: threads=%d mode=%s backoff=%s", cfg.Threads, cfg.Mode, cfg.Backoff)
		}
		if cfg.MaxRetries != 0 {
			t.Errorf("unset flag overrode file: retries=%d", cfg.MaxRetries)
		}
		if cfg.Cookie != "from=flag" {
			t.Errorf("Cookie = %q, want from=flag", cfg.Cookie)
		}
		if cfg.Headers["X-One"] != "1" || cfg.Headers["X-Two"] != "2" {
			t.Errorf("Headers = %v", cfg.Headers)
		}
	})

	t.Run("repeated output and no-summary", func(t *testing.T) {
		t.Parallel()

		cmd := parsedCrawlCmd(t, "--config", cfgPath, "-o", "a.json", "-o", "b.xlsx", "--no-summary")
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		got := cfg.OutputPaths()
		if len(got) != 2 || got[0] != "a.json" || got[1] != "b.xlsx" {
			t.Errorf("OutputPaths() = %v", got)
		}
		if cfg.SummarySheet {
			t.Error("--no-summary was not applied")
		}
	})

	t.Run("invalid header flag", func(t *testing.T) {
		t.Parallel()

		cmd := parsedCrawlCmd(t, "--config", cfgPath, "-H", "broken")
		if _, err := loadConfig(cmd, nil); !errors.Is(err, errInvalidHeader) {
			t.Errorf("loadConfig() error = %v, want errInvalidHeader", err)
		}
	})

	t.Run("missing explicit config", func(t *testing.T) {
		t.Parallel()

		cmd := parsedCrawlCmd(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := loadConfig(cmd, nil); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("loadConfig() error = %v, want ErrConfigNotFound", err)
		}
	})
}

// TestLoadConfigEnv cannot run in parallel because it sets the environment.
func TestLoadConfigEnv(t *testing.T) {
	cfgPath := writeConfig(t, "defaults:\n  cookie: \"from=file\"\n")
	t.Setenv(config.EnvCookie, "from=env")

	cmd := parsedCrawlCmd(t, "--config", cfgPath)
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Cookie != "from=env" {
		t.Errorf("Cookie = %q, want env to override file", cfg.Cookie)
	}

	cmd = parsedCrawlCmd(t, "--config", cfgPath, "--cookie", "from=flag")
	cfg, err = loadConfig(cmd, nil)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Cookie != "from=flag" {
		t.Errorf("Cookie = %q, want flag to override env", cfg.Cookie)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "crawl.env")
	if err := os.WriteFile(envPath, []byte(config.EnvProxy+"=socks5://127.0.0.1:1080\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvProxy, "")
	_ = os.Unsetenv(config.EnvProxy)

	cmd := parsedCrawlCmd(t, "--config", writeConfig(t, ""), "--env-file", envPath)
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Proxy != "socks5://127.0.0.1:1080" {
		t.Errorf("Proxy = %q, want value from env file", cfg.Proxy)
	}
}
