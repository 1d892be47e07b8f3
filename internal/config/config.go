package config

import (
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/parser"
)

// Default configuration values. The request settings match the behavior
// of the tool the crawler replaces: 25s per request, three retries and a
// linearly growing 600ms delay.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "cliqcrawl"

	// DefaultDomain is the only domain URLs are accepted for.
	DefaultDomain = "tatacliq.com"

	// DefaultThreads is the number of concurrent workers.
	DefaultThreads = 5

	// DefaultMaxRetries is the number of additional attempts after a
	// retryable failure.
	DefaultMaxRetries = 3

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 25 * time.Second

	// DefaultBackoff is the retry delay growth.
	DefaultBackoff = model.BackoffLinear

	// DefaultRetryDelay is the base delay between attempts.
	DefaultRetryDelay = 600 * time.Millisecond

	// DefaultMode fetches the product-details web service.
	DefaultMode = model.ModeAPI

	// DefaultAPIBase is the marketplace web service root.
	DefaultAPIBase = parser.DefaultAPIBase

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultSheet and DefaultColumn locate URLs in a spreadsheet.
	DefaultSheet  = "Sheet1"
	DefaultColumn = "url"

	// DefaultOutput is the export path used when --output is not given.
	DefaultOutput = "cliqcrawl_output.xlsx"

	// DefaultUserAgent is a desktop Chrome user agent. The marketplace
	// rejects requests that do not look like they come from a browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
)

// Environment variable names read by ApplyEnv.
const (
	EnvCookie  = "CLIQCRAWL_COOKIE"
	EnvProxy   = "CLIQCRAWL_PROXY"
	EnvAPIBase = "CLIQCRAWL_API_BASE"
	EnvDomain  = "CLIQCRAWL_DOMAIN"
)

// DefaultHeaders returns the browser-like headers sent with every request.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":             "*/*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Mode":               "no-cors",
		"Priority":           "u=1, i",
		"Referer":            "https://www.tatacliq.com/",
		"Sec-Ch-Ua":          `"Google Chrome";v="143", "Chromium";v="143", "Not A(Brand";v="24"`,
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": `"Windows"`,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-origin",
		"User-Agent":         DefaultUserAgent,
	}
}

// Config holds all configuration options for a crawl.
// It is populated from defaults, the config file, the environment and CLI
// flags, and passed down by dependency injection.
type Config struct {
	// Inputs are URLs given directly on the command line.
	Inputs []string

	// InputFile is a .xlsx, .csv or text file with URLs.
	InputFile string

	// Sheet and Column locate URLs inside a spreadsheet input.
	Sheet  string
	Column string

	// Domain is the target domain. Hosts must equal it or, when
	// AllowSubdomains is set, be a subdomain of it.
	Domain          string
	AllowSubdomains bool

	// Mode selects between fetching the details API and the product page.
	Mode model.Mode

	// APIBase is the web service root used in API mode.
	APIBase string

	// Enrich turns on the customer-voice, manufacturing and size-guide
	// requests in API mode.
	Enrich bool

	// Threads is the number of concurrent workers.
	Threads int

	// MaxRetries is the number of additional attempts after a retryable
	// failure.
	MaxRetries int

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Backoff and RetryDelay define the wait between attempts.
	Backoff    model.BackoffStrategy
	RetryDelay time.Duration

	// MaxBodySize limits response bodies. 0 means DefaultMaxBodySize.
	MaxBodySize int64

	// Cookie is sent as the Cookie header on every request.
	Cookie string

	// Headers are added on top of DefaultHeaders and the file defaults.
	Headers map[string]string

	// Proxy is an optional socks5:// or http:// proxy URL.
	Proxy string

	// Output is the export path. Its extension selects the format.
	Output string

	// ExtraOutputs are further export paths written from the same run.
	ExtraOutputs []string

	// SummarySheet adds a Summary sheet to xlsx exports.
	SummarySheet bool

	// SQLitePath, when set, also writes the run to a SQLite file.
	SQLitePath string

	// StatusAddr, when set, serves metrics, progress and stop endpoints.
	StatusAddr string

	// Verbose enables debug logging. LogJSON selects the JSON handler.
	Verbose bool
	LogJSON bool

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string

	// EnvFile is an explicit .env path.
	EnvFile string

	// File is the loaded configuration file, nil when none was found.
	File *File
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Sheet:           DefaultSheet,
		Column:          DefaultColumn,
		Domain:          DefaultDomain,
		AllowSubdomains: true,
		Mode:            DefaultMode,
		APIBase:         DefaultAPIBase,
		Threads:         DefaultThreads,
		MaxRetries:      DefaultMaxRetries,
		Timeout:         DefaultTimeout,
		Backoff:         DefaultBackoff,
		RetryDelay:      DefaultRetryDelay,
		MaxBodySize:     DefaultMaxBodySize,
		Output:          DefaultOutput,
		SummarySheet:    true,
		Headers:         make(map[string]string),
	}
}

// OutputPaths returns Output followed by ExtraOutputs.
func (c *Config) OutputPaths() []string {
	return append([]string{c.Output}, c.ExtraOutputs...)
}

// XDGConfigDir returns the XDG config directory for cliqcrawl.
// On Linux: ~/.config/cliqcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGConfigFile returns the configuration file path inside XDGConfigDir.
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 && c.InputFile == "" {
		return ErrNoInput
	}
	return c.ValidateSettings()
}

// ValidateSettings validates everything except the inputs.
func (c *Config) ValidateSettings() error {
	if strings.TrimSpace(c.Domain) == "" {
		return ErrNoDomain
	}
	if c.Threads <= 0 {
		return ErrInvalidThreads
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if !c.Backoff.IsValid() {
		return ErrInvalidBackoff
	}
	if !c.Mode.IsValid() {
		return ErrInvalidMode
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// ApplyFile overlays the settings present in f. Zero values in f leave
// the current value unchanged.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f

	s := f.Crawl
	if s.Domain != "" {
		c.Domain = s.Domain
	}
	if s.AllowSubdomains != nil {
		c.AllowSubdomains = *s.AllowSubdomains
	}
	if s.Mode != "" {
		c.Mode = model.Mode(strings.ToLower(s.Mode))
	}
	if s.APIBase != "" {
		c.APIBase = s.APIBase
	}
	if s.Enrich != nil {
		c.Enrich = *s.Enrich
	}
	if s.Threads != 0 {
		c.Threads = s.Threads
	}
	if s.Retries != nil {
		c.MaxRetries = *s.Retries
	}
	if s.Timeout != 0 {
		c.Timeout = s.Timeout
	}
	if s.Backoff != "" {
		c.Backoff = model.BackoffStrategy(strings.ToLower(s.Backoff))
	}
	if s.RetryDelay != nil {
		c.RetryDelay = *s.RetryDelay
	}
	if s.MaxBodySize != 0 {
		c.MaxBodySize = s.MaxBodySize
	}
	if s.Proxy != "" {
		c.Proxy = s.Proxy
	}
	if s.Output != "" {
		c.Output = s.Output
	}
	if s.SummarySheet != nil {
		c.SummarySheet = *s.SummarySheet
	}
	if s.Sheet != "" {
		c.Sheet = s.Sheet
	}
	if s.Column != "" {
		c.Column = s.Column
	}
	if f.Defaults.Cookie != "" {
		c.Cookie = f.Defaults.Cookie
	}
}

// ApplyEnv overlays values from the environment. getenv is usually
// os.Getenv; nil means os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvCookie)); v != "" {
		c.Cookie = v
	}
	if v := strings.TrimSpace(getenv(EnvProxy)); v != "" {
		c.Proxy = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIBase)); v != "" {
		c.APIBase = v
	}
	if v := strings.TrimSpace(getenv(EnvDomain)); v != "" {
		c.Domain = v
	}
}

// RequestHeaders returns the headers for every request: DefaultHeaders,
// then the file defaults, then Headers. Later layers win, compared
// case-insensitively.
func (c *Config) RequestHeaders() map[string]string {
	out := DefaultHeaders()
	if c.File != nil {
		mergeHeaders(out, c.File.Defaults.Headers)
	}
	mergeHeaders(out, c.Headers)
	return out
}

// RequestConfig builds the request settings shared by all tasks.
func (c *Config) RequestConfig() model.RequestConfig {
	return model.RequestConfig{
		Headers:    c.RequestHeaders(),
		Cookie:     c.Cookie,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		Backoff:    c.Backoff,
		RetryDelay: c.RetryDelay,
	}
}

// HostProfiles returns the per-host overrides from the configuration file.
func (c *Config) HostProfiles() map[string]HostConfig {
	if c.File == nil || len(c.File.Hosts) == 0 {
		return nil
	}
	return maps.Clone(c.File.Hosts)
}

// mergeHeaders copies src into dst, replacing keys that differ only in case.
func mergeHeaders(dst, src map[string]string) {
	for k, v := range src {
		for existing := range dst {
			if strings.EqualFold(existing, k) && existing != k {
				delete(dst, existing)
			}
		}
		dst[k] = v
	}
}
