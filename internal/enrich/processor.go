package enrich

import (
	"context"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-geocoder/internal/address"
	"github.com/sells-group/hospital-geocoder/internal/table"
)

// Columns appended to unmatched rows, holding the candidate addresses that
// were tried.
const (
	ColUnmatchedPrimary  = "Unmatched_Primary_Address"
	ColUnmatchedHospital = "Unmatched_Hospital_Address"
	ColUnmatchedCity     = "Unmatched_City_Address"
)

// progressEvery is how often a progress log line is emitted.
const progressEvery = 200

// Options bounds and tunes a processing run.
type Options struct {
	Start    int  // first row index to process (0-based)
	Limit    int  // max rows to process, 0 = unbounded
	Progress bool // render a terminal progress bar on stderr
}

// Processor drives rows through the resolver sequentially, in input order.
type Processor struct {
	resolver *Resolver
	cols     address.Columns
}

// NewProcessor creates a Processor around the given resolver.
func NewProcessor(resolver *Resolver, cols address.Columns) *Processor {
	return &Processor{resolver: resolver, cols: cols}
}

// Run processes the selected row range of src, streaming augmented rows to
// out in input order, and returns the table of rows that remained without
// coordinates. Output columns are the input columns plus the four result
// columns, appended only when not already present.
func (p *Processor) Run(ctx context.Context, src *table.Table, out io.Writer, opts Options) (*table.Table, error) {
	log := zap.L()

	if len(src.Rows) == 0 {
		log.Info("no data rows in input")
		return &table.Table{}, nil
	}

	if err := src.RequireColumns(p.cols.Required()...); err != nil {
		return nil, err
	}

	columns := append([]string(nil), src.Columns...)
	for _, c := range []string{ColLatitude, ColLongitude, ColSource, ColConfidence} {
		if !src.HasColumn(c) {
			columns = append(columns, c)
		}
	}

	start := opts.Start
	if start < 0 {
		start = 0
	}
	end := len(src.Rows)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	if start > end {
		start = end
	}

	log.Info("processing rows",
		zap.Int("total", len(src.Rows)),
		zap.Int("start", start),
		zap.Int("end", end),
	)

	w := table.NewWriter(out, columns)
	if err := w.WriteHeader(); err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(end-start,
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	cache := make(Cache)
	unmatched := &table.Table{
		Columns: append(append([]string(nil), columns...), ColUnmatchedPrimary, ColUnmatchedHospital, ColUnmatchedCity),
	}

	for idx := start; idx < end; idx++ {
		row := src.Rows[idx]

		if idx < 5 {
			log.Debug("primary address", zap.Int("row", idx), zap.String("address", p.cols.Primary(row)))
		}

		res, err := p.resolver.Resolve(ctx, idx, row, cache)
		if err != nil {
			return nil, err
		}

		row[ColLatitude] = res.Latitude
		row[ColLongitude] = res.Longitude
		row[ColSource] = res.Source
		row[ColConfidence] = res.Confidence

		if err := w.WriteRow(row); err != nil {
			return nil, err
		}

		if res.Latitude == "" || res.Longitude == "" {
			cp := row.Clone()
			cp[ColUnmatchedPrimary] = p.cols.Primary(row)
			cp[ColUnmatchedHospital] = p.cols.Hospital(row)
			cp[ColUnmatchedCity] = p.cols.City(row)
			unmatched.Rows = append(unmatched.Rows, cp)
		}

		if bar != nil {
			_ = bar.Add(1)
		}
		if idx > start && (idx-start)%progressEvery == 0 {
			log.Info("progress", zap.Int("processed", idx-start), zap.Int("remaining", end-idx))
		}
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}

	log.Info("processing complete",
		zap.Int("rows", end-start),
		zap.Int("unmatched", len(unmatched.Rows)),
	)
	return unmatched, nil
}
