package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/parser"
)

// errInvalidEntries is returned by validate --strict when any input is rejected.
var errInvalidEntries = errors.New("input contains invalid URLs")

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [url...]",
		Short: "Check and deduplicate URLs without fetching them",
		Long: `Validate runs the same normalization, domain check and dedupe as crawl and
reports the result without sending any request.

Each unique entry is listed with its normalized form, or with the reason it
was rejected. In api mode a valid URL without a product ID is reported too,
because crawl would fail it.

Examples:
  cliqcrawl validate -i products.xlsx
  cliqcrawl validate --strict --json https://www.tatacliq.com/x/p-mp1`,
		Args: cobra.ArbitraryArgs,
		RunE: runValidateCmd,
	}

	addRequestFlags(cmd)
	cmd.Flags().Bool("strict", false, "Exit with an error if any URL is invalid")
	cmd.Flags().Bool("json", false, "Print entries and counts as JSON")
	return cmd
}

type validateReport struct {
	Inputs     int              `json:"inputs"`
	Unique     int              `json:"unique"`
	Duplicates int              `json:"duplicates"`
	Valid      int              `json:"valid"`
	Invalid    int              `json:"invalid"`
	Entries    []validatedEntry `json:"entries"`
}

type validatedEntry struct {
	model.URLEntry
	ProductID string `json:"product_id,omitempty"`
}

func runValidateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	newLogger(cmd.ErrOrStderr(), cfg)

	entries, stats, err := prepareEntries(cfg)
	if err != nil {
		return err
	}

	report := validateReport{
		Inputs:     stats.Inputs,
		Unique:     stats.Unique,
		Duplicates: stats.Duplicates(),
		Valid:      stats.Valid,
		Invalid:    stats.Invalid,
		Entries:    make([]validatedEntry, 0, len(entries)),
	}
	for _, e := range entries {
		ve := validatedEntry{URLEntry: e}
		if e.Valid {
			ve.ProductID, _ = parser.ProductID(e.Normalized)
		}
		report.Entries = append(report.Entries, ve)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for i, e := range report.Entries {
			switch {
			case !e.Valid:
				fmt.Fprintf(out, "%4d  INVALID  %s  (%s)\n", i+1, e.Raw, e.Error)
			case e.ProductID == "":
				fmt.Fprintf(out, "%4d  NO-ID    %s\n", i+1, e.Normalized)
			default:
				fmt.Fprintf(out, "%4d  OK       %s  [%s]\n", i+1, e.Normalized, e.ProductID)
			}
		}
		fmt.Fprintf(out, "\n%d inputs, %d duplicates removed, %d valid, %d invalid\n",
			report.Inputs, report.Duplicates, report.Valid, report.Invalid)
	}

	if strict && report.Invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidEntries, report.Invalid, report.Unique)
	}
	return nil
}
