package config

import (
	"strings"
	"time"
)

// HostConfig holds request overrides for a single host.
type HostConfig struct {
	// Cookie replaces the global cookie for this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to requests for this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// CrawlSettings mirrors the crawl flags. Pointer fields distinguish an
// explicit zero from an absent key.
type CrawlSettings struct {
	Domain          string         `yaml:"domain,omitempty"`
	AllowSubdomains *bool          `yaml:"allow_subdomains,omitempty"`
	Mode            string         `yaml:"mode,omitempty"`
	APIBase         string         `yaml:"api_base,omitempty"`
	Enrich          *bool          `yaml:"enrich,omitempty"`
	Threads         int            `yaml:"threads,omitempty"`
	Retries         *int           `yaml:"retries,omitempty"`
	Timeout         time.Duration  `yaml:"timeout,omitempty"`
	Backoff         string         `yaml:"backoff,omitempty"`
	RetryDelay      *time.Duration `yaml:"retry_delay,omitempty"`
	MaxBodySize     int64          `yaml:"max_body_size,omitempty"`
	Proxy           string         `yaml:"proxy,omitempty"`
	Output          string         `yaml:"output,omitempty"`
	SummarySheet    *bool          `yaml:"summary_sheet,omitempty"`
	Sheet           string         `yaml:"sheet,omitempty"`
	Column          string         `yaml:"column,omitempty"`
}

// File represents the structure of the .cliqcrawl configuration file.
type File struct {
	// Crawl holds crawl settings.
	Crawl CrawlSettings `yaml:"crawl,omitempty"`

	// Defaults is the request profile applied to every host.
	Defaults HostConfig `yaml:"defaults,omitempty"`

	// Hosts maps host names (without port) to their overrides.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`
}

// GetHostConfig returns the configuration for a host, merging the
// host-specific entry over the defaults.
func (cf *File) GetHostConfig(host string) HostConfig {
	result := HostConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	hc, ok := cf.Hosts[strings.ToLower(host)]
	if !ok {
		return result
	}
	if hc.Cookie != "" {
		result.Cookie = hc.Cookie
	}
	if len(hc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		mergeHeaders(result.Headers, hc.Headers)
	}
	return result
}
