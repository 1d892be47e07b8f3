package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// TestNewConfig verifies the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Threads is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.Threads != 5 {
			t.Errorf("expected Threads to be 5, got %d", cfg.Threads)
		}
	})

	t.Run("default retry policy", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 3 || cfg.Backoff != model.BackoffLinear || cfg.RetryDelay != 600*time.Millisecond {
			t.Errorf("unexpected retry policy: %d %s %v", cfg.MaxRetries, cfg.Backoff, cfg.RetryDelay)
		}
	})

	t.Run("default Timeout is 25 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 25*time.Second {
			t.Errorf("expected Timeout to be 25s, got %v", cfg.Timeout)
		}
	})

	t.Run("default target", func(t *testing.T) {
		t.Parallel()
		if cfg.Domain != "tatacliq.com" || !cfg.AllowSubdomains || cfg.Mode != model.ModeAPI {
			t.Errorf("unexpected target: %s subdomains=%v mode=%s", cfg.Domain, cfg.AllowSubdomains, cfg.Mode)
		}
	})

	t.Run("default output", func(t *testing.T) {
		t.Parallel()
		if cfg.Output != "cliqcrawl_output.xlsx" || cfg.Sheet != "Sheet1" || cfg.Column != "url" {
			t.Errorf("unexpected io defaults: %s %s %s", cfg.Output, cfg.Sheet, cfg.Column)
		}
		if !cfg.SummarySheet {
			t.Error("summary sheet should be on by default")
		}
		if got := cfg.OutputPaths(); len(got) != 1 || got[0] != DefaultOutput {
			t.Errorf("OutputPaths() = %v", got)
		}
	})
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Inputs = []string{"https://www.tatacliq.com/x/p-mp1"}
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config returned %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"no input", func(c *Config) { c.Inputs = nil }, ErrNoInput},
		{"input file is enough", func(c *Config) { c.Inputs = nil; c.InputFile = "urls.xlsx" }, nil},
		{"empty domain", func(c *Config) { c.Domain = " " }, ErrNoDomain},
		{"zero threads", func(c *Config) { c.Threads = 0 }, ErrInvalidThreads},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidRetries},
		{"zero retries allowed", func(c *Config) { c.MaxRetries = 0 }, nil},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, ErrInvalidRetryDelay},
		{"unknown backoff", func(c *Config) { c.Backoff = "exponential" }, ErrInvalidBackoff},
		{"unknown mode", func(c *Config) { c.Mode = "browser" }, ErrInvalidMode},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestLoadConfigFile tests YAML loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads every section", func(t *testing.T) {
		t.Parallel()

		content := `
crawl:
  domain: tatacliq.com
  threads: 8
  retries: 0
  timeout: 10s
  backoff: fixed
  retry_delay: 250ms
  enrich: true
  mode: page
  summary_sheet: false
defaults:
  cookie: "session=abc"
  headers:
    Accept-Language: en-IN
hosts:
  WWW.TataCliq.com:
    cookie: "host=1"
    headers:
      X-Test: "yes"
`
		path := filepath.Join(t.TempDir(), ".cliqcrawl")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if f.Crawl.Threads != 8 || f.Crawl.Timeout != 10*time.Second {
			t.Errorf("unexpected crawl settings %+v", f.Crawl)
		}
		if f.Crawl.Retries == nil || *f.Crawl.Retries != 0 {
			t.Error("explicit zero retries must be kept")
		}
		if f.Crawl.RetryDelay == nil || *f.Crawl.RetryDelay != 250*time.Millisecond {
			t.Errorf("unexpected retry delay %v", f.Crawl.RetryDelay)
		}
		if _, ok := f.Hosts["www.tatacliq.com"]; !ok {
			t.Errorf("host keys should be lower-cased, got %v", f.Hosts)
		}

		cfg := NewConfig()
		cfg.ApplyFile(f)
		if cfg.Threads != 8 || cfg.MaxRetries != 0 || cfg.Backoff != model.BackoffFixed || !cfg.Enrich || cfg.Mode != model.ModePage {
			t.Errorf("file settings not applied: %+v", cfg)
		}
		if cfg.SummarySheet {
			t.Error("summary_sheet: false was not applied")
		}
		if cfg.Cookie != "session=abc" {
			t.Errorf("expected default cookie from file, got %q", cfg.Cookie)
		}
		if cfg.Output != DefaultOutput {
			t.Errorf("absent keys must keep defaults, got output %q", cfg.Output)
		}

		hc := f.GetHostConfig("www.tatacliq.com")
		if hc.Cookie != "host=1" || hc.Headers["X-Test"] != "yes" || hc.Headers["Accept-Language"] != "en-IN" {
			t.Errorf("unexpected merged host config %+v", hc)
		}
		other := f.GetHostConfig("img.tatacliq.com")
		if other.Cookie != "session=abc" {
			t.Errorf("unknown host should get defaults, got %+v", other)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("crawl: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

// TestFindConfigFile tests explicit path lookup.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("crawl: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(%q) = %q", path, got)
	}
	if got := FindConfigFile(filepath.Join(dir, "missing.yaml")); got != "" {
		t.Errorf("expected empty result for missing explicit path, got %q", got)
	}
}

// TestApplyEnv tests environment overrides.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvCookie:  " a=1; b=2 ",
		EnvProxy:   "socks5://127.0.0.1:9050",
		EnvAPIBase: "http://127.0.0.1:8080/api",
	}

	cfg := NewConfig()
	cfg.ApplyFile(&File{Defaults: HostConfig{Cookie: "from=file"}})
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Cookie != "a=1; b=2" {
		t.Errorf("env cookie should win over file, got %q", cfg.Cookie)
	}
	if cfg.Proxy != env[EnvProxy] || cfg.APIBase != env[EnvAPIBase] {
		t.Errorf("unexpected proxy/api base: %q %q", cfg.Proxy, cfg.APIBase)
	}
	if cfg.Domain != DefaultDomain {
		t.Errorf("unset env must keep domain, got %q", cfg.Domain)
	}
}

// TestLoadEnvFile tests .env handling.
func TestLoadEnvFile(t *testing.T) {
	// Not parallel: godotenv writes to the process environment.
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CLIQCRAWL_TEST_ONLY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLIQCRAWL_TEST_ONLY", "")
	os.Unsetenv("CLIQCRAWL_TEST_ONLY") //nolint:errcheck // restored by t.Setenv

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("CLIQCRAWL_TEST_ONLY"); got != "from-dotenv" {
		t.Errorf("expected variable from .env, got %q", got)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing explicit env file")
	}
}

// TestRequestConfig tests header layering.
func TestRequestConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ApplyFile(&File{Defaults: HostConfig{Headers: map[string]string{"accept-language": "en-IN"}}})
	cfg.Headers["User-Agent"] = "custom"
	cfg.Cookie = "k=v"

	rc := cfg.RequestConfig()
	if rc.Headers["User-Agent"] != "custom" {
		t.Errorf("flag header should win, got %q", rc.Headers["User-Agent"])
	}
	if rc.Headers["accept-language"] != "en-IN" {
		t.Errorf("file header should replace default, got %v", rc.Headers)
	}
	if _, dup := rc.Headers["Accept-Language"]; dup {
		t.Error("case-insensitive duplicate header left behind")
	}
	if rc.Cookie != "k=v" || rc.Timeout != DefaultTimeout || rc.MaxRetries != DefaultMaxRetries {
		t.Errorf("unexpected request config %+v", rc)
	}
}

// TestXDGConfigFile tests the XDG location.
func TestXDGConfigFile(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("unexpected config dir %q", XDGConfigDir())
	}
	if filepath.Base(XDGConfigFile()) != "config.yaml" {
		t.Errorf("unexpected config file %q", XDGConfigFile())
	}
}
