package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cliqcrawl/internal/database"
	"github.com/nao1215/cliqcrawl/internal/export"
)

// errRunNotFound is returned when a run ID is not in the database.
var errRunNotFound = errors.New("run not found")

// errMissingRunID is returned when --delete is given without a run ID.
var errMissingRunID = errors.New("--delete needs a run ID")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List or re-export runs stored with --sqlite",
		Long: `History reads a SQLite file written by "crawl --sqlite".

Without arguments it lists the stored runs, newest first. With a run ID and
--output it exports that run again in any supported format. --same-input
limits the list to runs whose input set matches the given run. --delete
removes the given run and its records.

Examples:
  cliqcrawl history --sqlite runs.db
  cliqcrawl history --sqlite runs.db --same-input 3f1c...
  cliqcrawl history --sqlite runs.db 3f1c... -o rerun.md
  cliqcrawl history --sqlite runs.db --delete 3f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("sqlite", "", "SQLite file written by crawl --sqlite (required)")
	cmd.Flags().String("same-input", "", "List runs with the same input set as this run ID")
	cmd.Flags().StringP("output", "o", "", "Export the given run to this file")
	cmd.Flags().Bool("delete", false, "Delete the given run from the database")
	cmd.MarkFlagsMutuallyExclusive("delete", "output")
	cmd.MarkFlagsMutuallyExclusive("delete", "same-input")
	_ = cmd.MarkFlagRequired("sqlite") //nolint:errcheck // flag is defined above

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	path, err := f.GetString("sqlite")
	if err != nil {
		return err
	}
	sameInput, err := f.GetString("same-input")
	if err != nil {
		return err
	}
	output, err := f.GetString("output")
	if err != nil {
		return err
	}
	remove, err := f.GetBool("delete")
	if err != nil {
		return err
	}
	if remove && len(args) == 0 {
		return errMissingRunID
	}

	db, err := database.Open(path, database.Options{CreateIfNotExists: false})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if remove {
		deleted, err := db.DeleteRun(ctx, args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: %s", errRunNotFound, args[0])
		}
		fmt.Fprintf(out, "Deleted run %s\n", args[0])
		return nil
	}

	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("%w: %s", errRunNotFound, args[0])
		}
		if output == "" {
			_, err = export.NewSummaryWriter(out, export.WithVerbose(true)).Write(run)
			return err
		}
		if err := export.WriteFile(output, run, export.Options{Version: getVersion()}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported run %s (%d records) to %s\n", run.ID, len(run.Records), output)
		return nil
	}

	var runs []database.RunSummary
	if sameInput != "" {
		ref, err := db.GetRun(ctx, sameInput)
		if err != nil {
			return err
		}
		if ref == nil {
			return fmt.Errorf("%w: %s", errRunNotFound, sameInput)
		}
		runs, err = db.FindRunsByDigest(ctx, database.InputDigest(ref))
		if err != nil {
			return err
		}
	} else if runs, err = db.ListRuns(ctx); err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tDURATION\tRECORDS\tOK\tFAILED\tCANCELLED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Counts.Total,
			r.Counts.Succeeded(),
			r.Counts.Failed,
			r.Counts.Cancelled,
		)
	}
	return tw.Flush()
}
