package fetcher

import (
	"context"
	"errors"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/s0up4200/splatctl/bugsplat"
)

const (
	// MaxPageSize is the largest page the listing endpoints serve
	MaxPageSize = 1000
	// OverlapWindow is how many trailing rows are searched for a repeated page head
	OverlapWindow = 100
	// NoBoundary marks a target without a boundary id
	NoBoundary = "-"
)

// PageSource fetches one listing page
type PageSource interface {
	FetchPage(ctx context.Context, op bugsplat.Operation, database string, pageSize, pageNum int) (*bugsplat.Page, error)
}

// PagePlan returns how many pages to request, and their size, to collect
// count records.
func PagePlan(count int) (pages, size int) {
	return planPages(count, MaxPageSize)
}

func planPages(count, maxSize int) (pages, size int) {
	if count > maxSize {
		return (count + maxSize - 1) / maxSize, maxSize
	}
	return 1, count
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithMaxPageSize overrides the page size clamp
func WithMaxPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxPageSize = n
		}
	}
}

// WithOverlapWindow overrides how far back the merge looks for overlap
func WithOverlapWindow(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.overlapWindow = n
		}
	}
}

// Fetcher runs the page loop for each target
type Fetcher struct {
	source        PageSource
	logger        zerolog.Logger
	maxPageSize   int
	overlapWindow int
}

// New creates a Fetcher reading from source
func New(source PageSource, logger zerolog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:        source,
		logger:        logger,
		maxPageSize:   MaxPageSize,
		overlapWindow: OverlapWindow,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Collect fetches up to count records of op from every database, in order.
// boundaries[i] is the stop id for databases[i]; an empty or "-" entry, or a
// missing one, means no boundary.
func (f *Fetcher) Collect(ctx context.Context, op bugsplat.Operation, databases []string, count int, boundaries []string) ResultSet {
	results := make(ResultSet, 0, len(databases))

	for i, db := range databases {
		boundary := ""
		if i < len(boundaries) && boundaries[i] != NoBoundary {
			boundary = boundaries[i]
		}

		if err := ctx.Err(); err != nil {
			results = append(results, TargetResult{
				Database: db,
				Rows:     []bugsplat.Record{},
				Stop:     StopCanceled,
				Err:      err,
			})
			continue
		}

		results = append(results, f.collectTarget(ctx, op, db, count, boundary))
	}

	return results
}

func (f *Fetcher) collectTarget(ctx context.Context, op bugsplat.Operation, db string, count int, boundary string) TargetResult {
	log := f.logger.With().
		Str("database", db).
		Str("op", op.Name()).
		Logger()

	pages, size := planPages(count, f.maxPageSize)
	result := TargetResult{Database: db, Rows: []bugsplat.Record{}, Stop: StopComplete}

	log.Debug().
		Int("pages", pages).
		Int("page_size", size).
		Str("boundary", boundary).
		Msg("Collecting records")

	for pageNum := 0; pageNum < pages; pageNum++ {
		if err := ctx.Err(); err != nil {
			result.Stop, result.Err = StopCanceled, err
			break
		}

		page, err := f.source.FetchPage(ctx, op, db, size, pageNum)
		if err != nil {
			pageFailures.WithLabelValues(op.Name()).Inc()
			result.Err = err
			result.Stop = StopFetchError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Stop = StopCanceled
			}
			log.Error().
				Err(err).
				Int("page", pageNum).
				Int("kept", len(result.Rows)).
				Msg("Page fetch failed, keeping partial results")
			break
		}
		pagesFetched.WithLabelValues(op.Name()).Inc()

		rows := page.Rows
		received := len(rows)
		hit := false
		if boundary != "" {
			rows, hit = truncateAtBoundary(rows, boundary)
		}

		var trimmed bool
		result.Rows, trimmed = mergePage(result.Rows, rows, pageNum == 0, f.overlapWindow)
		if trimmed {
			overlapTrims.WithLabelValues(op.Name()).Inc()
		}
		result.Pages++

		log.Trace().
			Int("page", pageNum).
			Int("received", received).
			Int("total", len(result.Rows)).
			Bool("overlap", trimmed).
			Msg("Merged page")

		if hit {
			result.Stop = StopBoundary
			log.Debug().Int("page", pageNum).Msg("Reached boundary record")
			break
		}
		if received < size {
			if pageNum < pages-1 {
				result.Stop = StopExhausted
				log.Debug().Int("page", pageNum).Int("received", received).Msg("Listing exhausted")
			}
			break
		}
	}

	recordsCollected.WithLabelValues(op.Name()).Add(float64(len(result.Rows)))
	log.Debug().
		Int("records", len(result.Rows)).
		Str("stop", result.Stop.String()).
		Msg("Target finished")

	return result
}

// truncateAtBoundary returns the rows before the first row whose id is
// boundary, and whether such a row was found.
func truncateAtBoundary(rows []bugsplat.Record, boundary string) ([]bugsplat.Record, bool) {
	for i, row := range rows {
		if row.ID() == boundary {
			return rows[:i], true
		}
	}
	return rows, false
}

// mergePage appends page to acc. Unless first is set, the last window rows
// of acc are searched from the end for a row equal to page[0]; when found,
// acc is cut at that row so the repeated rows are not kept twice.
func mergePage(acc, page []bugsplat.Record, first bool, window int) ([]bugsplat.Record, bool) {
	if first || len(page) == 0 {
		return append(acc, page...), false
	}

	head := page[0]
	stop := len(acc) - window
	if stop < 0 {
		stop = 0
	}

	trimmed := false
	for i := len(acc) - 1; i >= stop; i-- {
		if reflect.DeepEqual(acc[i], head) {
			acc = acc[:i]
			trimmed = true
			break
		}
	}

	return append(acc, page...), trimmed
}
