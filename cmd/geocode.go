package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-geocoder/internal/address"
	"github.com/sells-group/hospital-geocoder/internal/enrich"
	"github.com/sells-group/hospital-geocoder/internal/table"
	"github.com/sells-group/hospital-geocoder/pkg/geocode"
)

var (
	geocodeInfile     string
	geocodeOutfile    string
	geocodeSleep      float64
	geocodeRound      int
	geocodeStart      int
	geocodeLimit      int
	geocodeDryRun     bool
	geocodeNoProgress bool
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode a hospital CSV",
	Long: `Geocodes each row of the input CSV via the US Census Geocoder.

Rows already carrying coordinates are passed through, so re-running on a
partially geocoded file only fills the gaps. Rows no tier could resolve are
written to the unmatched side table for manual follow-up.

Examples:
  # Validate the input and preview the first addresses, no network
  hospital-geocoder geocode --infile hospitals.csv --outfile out.csv --dry-run

  # Geocode a slice of a large file
  hospital-geocoder geocode --infile hospitals.csv --outfile out.csv --start 1000 --limit 500`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "geocode"))

		log.Info("reading input", zap.String("path", geocodeInfile))
		src, err := table.ReadFile(geocodeInfile)
		if err != nil {
			return eris.Wrap(err, "geocode: read input")
		}

		cols := address.Columns{
			Street:      cfg.Columns.Street,
			CityCol:     cfg.Columns.City,
			State:       cfg.Columns.State,
			Zip:         cfg.Columns.Zip,
			HospitalCol: cfg.Columns.Hospital,
		}

		if geocodeDryRun {
			return dryRun(src, cols)
		}

		client := geocode.NewClient(
			geocode.WithBaseURL(cfg.Census.BaseURL),
			geocode.WithBenchmark(cfg.Census.Benchmark),
			geocode.WithTimeout(time.Duration(cfg.Census.TimeoutSecs)*time.Second),
		)

		sleep := time.Duration(geocodeSleep * float64(time.Second))
		resolver := enrich.NewResolver(client, cols, sleep, geocodeRound)
		processor := enrich.NewProcessor(resolver, cols)

		out, err := os.Create(geocodeOutfile)
		if err != nil {
			return eris.Wrap(err, "geocode: create output")
		}
		defer out.Close() //nolint:errcheck

		unmatched, err := processor.Run(ctx, src, out, enrich.Options{
			Start:    geocodeStart,
			Limit:    geocodeLimit,
			Progress: !geocodeNoProgress,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Done. Wrote: %s\n", geocodeOutfile)

		if len(unmatched.Rows) > 0 {
			path := cfg.Geocode.UnmatchedPath
			if err := table.WriteFile(path, unmatched); err != nil {
				return eris.Wrap(err, "geocode: write unmatched table")
			}
			fmt.Printf("Wrote %d unmatched rows to %s\n", len(unmatched.Rows), path)
		}

		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeInfile, "infile", "", "input CSV path (required)")
	geocodeCmd.Flags().StringVar(&geocodeOutfile, "outfile", "", "output CSV path (required)")
	geocodeCmd.Flags().Float64Var(&geocodeSleep, "sleep", 0.25, "delay between requests (seconds)")
	geocodeCmd.Flags().IntVar(&geocodeRound, "round", 5, "round coordinates to N decimals")
	geocodeCmd.Flags().IntVar(&geocodeStart, "start", 0, "start row index (0-based)")
	geocodeCmd.Flags().IntVar(&geocodeLimit, "limit", 0, "max rows to process (0 = all)")
	geocodeCmd.Flags().BoolVar(&geocodeDryRun, "dry-run", false, "validate the input and print the first primary addresses, no network")
	geocodeCmd.Flags().BoolVar(&geocodeNoProgress, "no-progress", false, "disable the terminal progress bar")
	_ = geocodeCmd.MarkFlagRequired("infile")
	_ = geocodeCmd.MarkFlagRequired("outfile")
	rootCmd.AddCommand(geocodeCmd)
}

// dryRun validates the header and previews the first primary addresses
// without any network activity.
func dryRun(src *table.Table, cols address.Columns) error {
	if len(src.Rows) == 0 {
		fmt.Println("No data rows found in input.")
		return nil
	}

	if err := src.RequireColumns(cols.Required()...); err != nil {
		return err
	}

	fmt.Printf("Detected headers: %v\n", src.Columns)
	fmt.Printf("Total rows: %d\n", len(src.Rows))
	for i, row := range src.Rows {
		if i >= 5 {
			break
		}
		fmt.Printf("Row %d primary address: %s\n", i, cols.Primary(row))
	}
	return nil
}
