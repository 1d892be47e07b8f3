package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/cliqcrawl/internal/config"
	"github.com/nao1215/cliqcrawl/internal/log"
	"github.com/nao1215/cliqcrawl/internal/model"
)

// errInvalidHeader is returned for --header values without a separator.
var errInvalidHeader = errors.New("invalid header (want Name=value or Name: value)")

// addRequestFlags registers the flags shared by commands that validate or
// crawl URLs.
func addRequestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "File with URLs (.xlsx, .csv, or one URL per line)")
	f.String("sheet", config.DefaultSheet, "Worksheet to read from .xlsx input")
	f.String("column", config.DefaultColumn, "Header of the URL column in .xlsx/.csv input")
	f.String("domain", config.DefaultDomain, "Domain every URL must belong to")
	f.Bool("allow-subdomains", true, "Accept subdomains of --domain")
}

// addCrawlFlags registers the crawl-only flags.
func addCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("mode", "m", string(config.DefaultMode), "What to fetch per URL: api or page")
	f.String("api-base", config.DefaultAPIBase, "Product web service root used in api mode")
	f.Bool("enrich", false, "Also fetch reviews, manufacturer and size guide (api mode)")
	f.IntP("threads", "t", config.DefaultThreads, "Number of concurrent workers")
	f.IntP("retries", "r", config.DefaultMaxRetries, "Extra attempts after a retryable failure")
	f.Duration("timeout", config.DefaultTimeout, "Timeout for each HTTP attempt")
	f.String("backoff", string(config.DefaultBackoff), "Retry delay growth: fixed or linear")
	f.Duration("retry-delay", config.DefaultRetryDelay, "Base delay between attempts")
	f.Int64("max-body-size", config.DefaultMaxBodySize, "Maximum response body size in bytes")
	f.String("cookie", "", "Cookie header sent with every request (or "+config.EnvCookie+")")
	f.StringArrayP("header", "H", nil, "Extra request header as Name=value (repeatable)")
	f.String("proxy", "", "Proxy URL (socks5://, http://) (or "+config.EnvProxy+")")
	f.StringArrayP("output", "o", []string{config.DefaultOutput}, "Output file; the extension selects xlsx, csv, json or md (repeatable)")
	f.Bool("no-summary", false, "Leave the Summary sheet out of .xlsx output")
	f.String("sqlite", "", "Also store the run in this SQLite file")
	f.String("run-id", "", "Use this run ID instead of a generated one; --sqlite replaces a stored run with the same ID")
	f.String("status-addr", "", "Serve /progress, /metrics and POST /stop on this address")
	f.BoolP("quiet", "q", false, "Do not print per-URL progress")
}

// loadConfig builds the configuration with the precedence
// flag > environment > file > default.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	root := cmd.Root().PersistentFlags()

	var err error
	if cfg.Verbose, err = root.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = root.GetBool("log-json"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = root.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.EnvFile, err = root.GetString("env-file"); err != nil {
		return nil, err
	}

	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Inputs = args
	return cfg, nil
}

// applyFlags copies the flags the user set explicitly into cfg. Flags
// left at their defaults do not override file or environment values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error

	set := func(name string, apply func() error) {
		if err != nil || f.Lookup(name) == nil || !f.Changed(name) {
			return
		}
		err = apply()
	}

	set("input", func() (e error) { cfg.InputFile, e = f.GetString("input"); return })
	set("sheet", func() (e error) { cfg.Sheet, e = f.GetString("sheet"); return })
	set("column", func() (e error) { cfg.Column, e = f.GetString("column"); return })
	set("domain", func() (e error) { cfg.Domain, e = f.GetString("domain"); return })
	set("allow-subdomains", func() (e error) { cfg.AllowSubdomains, e = f.GetBool("allow-subdomains"); return })
	set("api-base", func() (e error) { cfg.APIBase, e = f.GetString("api-base"); return })
	set("enrich", func() (e error) { cfg.Enrich, e = f.GetBool("enrich"); return })
	set("threads", func() (e error) { cfg.Threads, e = f.GetInt("threads"); return })
	set("retries", func() (e error) { cfg.MaxRetries, e = f.GetInt("retries"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = f.GetDuration("timeout"); return })
	set("retry-delay", func() (e error) { cfg.RetryDelay, e = f.GetDuration("retry-delay"); return })
	set("max-body-size", func() (e error) { cfg.MaxBodySize, e = f.GetInt64("max-body-size"); return })
	set("cookie", func() (e error) { cfg.Cookie, e = f.GetString("cookie"); return })
	set("proxy", func() (e error) { cfg.Proxy, e = f.GetString("proxy"); return })
	set("output", func() error {
		paths, e := f.GetStringArray("output")
		if e != nil || len(paths) == 0 {
			return e
		}
		cfg.Output, cfg.ExtraOutputs = paths[0], paths[1:]
		return nil
	})
	set("no-summary", func() error {
		v, e := f.GetBool("no-summary")
		cfg.SummarySheet = !v
		return e
	})
	set("sqlite", func() (e error) { cfg.SQLitePath, e = f.GetString("sqlite"); return })
	set("status-addr", func() (e error) { cfg.StatusAddr, e = f.GetString("status-addr"); return })
	set("mode", func() error {
		v, e := f.GetString("mode")
		cfg.Mode = model.Mode(strings.ToLower(v))
		return e
	})
	set("backoff", func() error {
		v, e := f.GetString("backoff")
		cfg.Backoff = model.BackoffStrategy(strings.ToLower(v))
		return e
	})
	set("header", func() error {
		values, e := f.GetStringArray("header")
		if e != nil {
			return e
		}
		for _, raw := range values {
			name, value, e := parseHeader(raw)
			if e != nil {
				return e
			}
			cfg.Headers[name] = value
		}
		return nil
	})
	return err
}

// parseHeader splits "Name=value" or "Name: value".
func parseHeader(raw string) (string, string, error) {
	sep := strings.IndexAny(raw, "=:")
	if sep <= 0 {
		return "", "", fmt.Errorf("%w: %q", errInvalidHeader, raw)
	}
	name := strings.TrimSpace(raw[:sep])
	if name == "" {
		return "", "", fmt.Errorf("%w: %q", errInvalidHeader, raw)
	}
	return name, strings.TrimSpace(raw[sep+1:]), nil
}

// newLogger creates the secure logger for cfg and installs it as default.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := log.New(w, log.Options{Verbose: cfg.Verbose, JSON: cfg.LogJSON})
	slog.SetDefault(logger)
	return logger
}
