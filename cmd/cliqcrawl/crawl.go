package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cliqcrawl/internal/config"
	"github.com/nao1215/cliqcrawl/internal/database"
	"github.com/nao1215/cliqcrawl/internal/export"
	"github.com/nao1215/cliqcrawl/internal/fetcher"
	"github.com/nao1215/cliqcrawl/internal/input"
	"github.com/nao1215/cliqcrawl/internal/intake"
	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/monitor"
	"github.com/nao1215/cliqcrawl/internal/parser"
	"github.com/nao1215/cliqcrawl/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl product URLs and export the extracted data",
		Long: `Crawl validates, deduplicates and fetches every product URL, then writes
one row per unique URL to the output file.

URLs come from the arguments and/or --input. Spreadsheet input is read
from the --sheet worksheet, using the column whose header is --column.

In api mode (the default) the product ID is taken from the "/p-" segment of
each URL and the product-details web service is queried. In page mode the
product page itself is fetched and its structured data is parsed.

Examples:
  # Crawl the URLs in an Excel sheet
  cliqcrawl crawl -i products.xlsx -o products_out.xlsx

  # Crawl two URLs with 8 workers and write both JSON and a workbook
  cliqcrawl crawl -t 8 -o out.json -o out.xlsx https://www.tatacliq.com/x/p-mp000000012345678 ...

  # Pass a session cookie and expose a stop endpoint
  CLIQCRAWL_COOKIE="mcvid=..." cliqcrawl crawl -i urls.txt --status-addr 127.0.0.1:9100
  curl -X POST http://127.0.0.1:9100/stop`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addRequestFlags(cmd)
	addCrawlFlags(cmd)
	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	for _, path := range cfg.OutputPaths() {
		if _, err := export.FormatForPath(path); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run-id")
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	out := cmd.OutOrStdout()

	entries, stats, err := prepareEntries(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d input URLs, %d unique (%d valid, %d invalid)\n",
		stats.Inputs, stats.Unique, stats.Valid, stats.Invalid)

	run := pipeline.NewRun(entries,
		pipeline.WithDomain(cfg.Domain),
		pipeline.WithInputCount(stats.Inputs),
		pipeline.WithRunID(runID),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopWatching := watchSignals(ctx, run, cancel, cmd.ErrOrStderr(), logger)
	defer stopWatching()

	var progress io.Writer
	if !quiet {
		progress = out
	}

	result, err := executeCrawl(ctx, cfg, run, logger, progress)
	if err != nil {
		return err
	}

	if err := saveResult(cmd.Context(), cfg, result, logger); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d records to %s\n", len(result.Records), strings.Join(cfg.OutputPaths(), ", "))

	_, err = export.NewSummaryWriter(out, export.WithVerbose(cfg.Verbose)).Write(result)
	return err
}

// prepareEntries reads every input source and runs validation and dedupe.
func prepareEntries(cfg *config.Config) ([]model.URLEntry, intake.Stats, error) {
	raws := append([]string(nil), cfg.Inputs...)
	if cfg.InputFile != "" {
		fromFile, err := input.ReadFile(cfg.InputFile, input.Options{Sheet: cfg.Sheet, Column: cfg.Column})
		if err != nil {
			return nil, intake.Stats{}, fmt.Errorf("failed to read input %s: %w", cfg.InputFile, err)
		}
		raws = append(raws, fromFile...)
	}

	validator := intake.NewValidator(cfg.Domain, intake.WithSubdomains(cfg.AllowSubdomains))
	entries, stats := intake.Prepare(validator, raws)
	return entries, stats, nil
}

// executeCrawl wires the fetcher, scheduler and optional status server and
// runs the crawl to completion. progress, when non-nil, receives one line
// per stored record.
func executeCrawl(ctx context.Context, cfg *config.Config, run *pipeline.Run, logger *slog.Logger, progress io.Writer) (*model.CrawlRun, error) {
	client, err := fetcher.NewHTTPClient(
		fetcher.WithProxy(cfg.Proxy),
		fetcher.WithHostProfiles(hostProfiles(cfg)),
		fetcher.WithClientTimeout(cfg.Timeout+5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	metrics := monitor.NewMetrics(run.Progress)

	f := fetcher.New(client,
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
		fetcher.WithAttemptHook(metrics.ObserveAttempt),
	)

	if cfg.StatusAddr != "" {
		srv := monitor.NewServer(cfg.StatusAddr, run, metrics, monitor.WithServerLogger(logger))
		if err := srv.Start(); err != nil {
			return nil, fmt.Errorf("failed to start status server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown failed", "error", err)
			}
		}()
	}

	printer := newProgressPrinter(progress, len(run.Entries()))
	scheduler := pipeline.NewScheduler(f, parser.New(),
		pipeline.WithThreads(cfg.Threads),
		pipeline.WithMode(cfg.Mode),
		pipeline.WithEndpoints(parser.NewEndpoints(cfg.APIBase)),
		pipeline.WithEnrichment(cfg.Enrich),
		pipeline.WithRequest(cfg.RequestConfig()),
		pipeline.WithSchedulerLogger(logger),
		pipeline.WithRecordCallback(func(rec model.Record) {
			metrics.ObserveRecord(rec)
			printer.print(rec)
		}),
	)

	result, err := scheduler.Execute(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("crawl failed: %w", err)
	}
	return result, nil
}

// hostProfiles converts the file's per-host overrides for the fetcher.
func hostProfiles(cfg *config.Config) map[string]fetcher.Profile {
	hosts := cfg.HostProfiles()
	if len(hosts) == 0 {
		return nil
	}
	out := make(map[string]fetcher.Profile, len(hosts))
	for host, hc := range hosts {
		out[host] = fetcher.Profile{Headers: hc.Headers, Cookie: hc.Cookie}
	}
	return out
}

// saveResult writes the export file and, when configured, the SQLite copy.
// Both run even after a stop so partial results are kept.
func saveResult(ctx context.Context, cfg *config.Config, result *model.CrawlRun, logger *slog.Logger) error {
	var errs []error

	paths := cfg.OutputPaths()
	opts := export.Options{Version: getVersion(), NoSummary: !cfg.SummarySheet}
	if err := export.WriteFiles(paths, result, opts); err != nil {
		errs = append(errs, fmt.Errorf("failed to export results: %w", err))
	} else {
		logger.Info("results exported", "paths", paths, "records", len(result.Records))
	}

	if cfg.SQLitePath != "" {
		if err := saveToDatabase(ctx, cfg.SQLitePath, result); err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("run saved to database", "path", cfg.SQLitePath, "run_id", result.ID)
		}
	}
	return errors.Join(errs...)
}

func saveToDatabase(ctx context.Context, path string, result *model.CrawlRun) error {
	db, err := database.Open(path, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// watchSignals turns the first SIGINT/SIGTERM into a cooperative stop and a
// second one into a hard abort. The returned func releases the handler.
func watchSignals(ctx context.Context, run *pipeline.Run, abort context.CancelFunc, w io.Writer, logger *slog.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				if run.Stop() {
					logger.Info("stop requested", "signal", sig.String())
					fmt.Fprintln(w, "Stopping: finishing in-flight requests. Press Ctrl+C again to abort.")
					continue
				}
				logger.Warn("aborting crawl", "signal", sig.String())
				fmt.Fprintln(w, "Aborting in-flight requests.")
				abort()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}

// progressPrinter prints one line per stored record. Records arrive from
// several workers, so writes are serialized.
type progressPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	total int
	n     int
}

func newProgressPrinter(w io.Writer, total int) *progressPrinter {
	return &progressPrinter{w: w, total: total}
}

func (p *progressPrinter) print(rec model.Record) {
	if p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	fmt.Fprintf(p.w, "[%d/%d] %-9s %s\n", p.n, p.total, statusLabel(rec), rec.SourceURL)
}

func statusLabel(rec model.Record) string {
	if rec.Status == model.StatusFailed && rec.Kind != "" {
		return string(rec.Kind)
	}
	return string(rec.Status)
}
