// Package job runs one splatctl operation from validated parameters: it
// selects databases, logs in, collects records, and then filters, exports
// and writes them.
package job

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/s0up4200/splatctl/bugsplat"
	"github.com/s0up4200/splatctl/config"
	"github.com/s0up4200/splatctl/export"
	"github.com/s0up4200/splatctl/fetcher"
	"github.com/s0up4200/splatctl/filter"
	"github.com/s0up4200/splatctl/output"
	"github.com/s0up4200/splatctl/selector"
)

// ErrInvalidParams indicates parameters rejected by New
var ErrInvalidParams = errors.New("invalid job parameters")

// Selection describes the databases a job runs against
type Selection struct {
	Databases  []string
	Tags       []string
	MatchMode  string
	DefaultTag string
}

func (s Selection) criteria() (selector.Criteria, error) {
	mode, err := selector.ParseMatchMode(s.MatchMode)
	if err != nil {
		return selector.Criteria{}, err
	}
	return selector.Criteria{
		Databases:  s.Databases,
		Tags:       s.Tags,
		Mode:       mode,
		DefaultTag: s.DefaultTag,
	}, nil
}

// Params are the inputs of a fetch job
type Params struct {
	Selection Selection

	Operation  string
	StackKeyID string
	Count      int
	// Boundaries pairs by position with Selection.Databases, in the order
	// the names were given. "-" or "" means no boundary.
	Boundaries []string

	Filter string

	Zip       bool
	ZipDir    string
	Overwrite bool
}

// Job is a validated, immutable fetch job
type Job struct {
	criteria   selector.Criteria
	op         bugsplat.Operation
	count      int
	boundaries map[string]string
	filter     *filter.Filter
	zip        bool
	zipDir     string
	overwrite  bool
}

// New validates p and builds a Job
func New(p Params) (*Job, error) {
	op, err := bugsplat.ParseOperation(strings.TrimSpace(p.Operation), p.StackKeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	if p.Count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", ErrInvalidParams, p.Count)
	}

	if p.Zip && !op.SupportsArchives() {
		return nil, fmt.Errorf("%w: zip export requires allcrash or keycrash, not %s", ErrInvalidParams, op.Name())
	}

	criteria, err := p.Selection.criteria()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	boundaries, err := pairBoundaries(p.Selection.Databases, p.Boundaries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	j := &Job{
		criteria:   criteria,
		op:         op,
		count:      p.Count,
		boundaries: boundaries,
		zip:        p.Zip,
		zipDir:     p.ZipDir,
		overwrite:  p.Overwrite,
	}

	if strings.TrimSpace(p.Filter) != "" {
		f, err := CompileFilter(p.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		j.filter = f
	}

	return j, nil
}

// filters is shared by every job in the process so a filter already
// checked by the caller is not compiled twice.
var filters = filter.NewCompiler(filter.WithCache(64))

// CompileFilter compiles a filter expression through the shared compiler
func CompileFilter(expression string) (*filter.Filter, error) {
	return filters.Compile(expression)
}

// pairBoundaries maps each boundary id to the database named at the same
// position. Ids need explicit database names, and a name given twice must
// not carry two different ids.
func pairBoundaries(databases, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(databases) == 0 {
		return nil, fmt.Errorf("boundary ids require explicit database names")
	}
	if len(ids) > len(databases) {
		return nil, fmt.Errorf("%d boundary ids given for %d databases", len(ids), len(databases))
	}

	paired := make(map[string]string, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == fetcher.NoBoundary {
			continue
		}
		name := databases[i]
		if prev, ok := paired[name]; ok && prev != id {
			return nil, fmt.Errorf("database %s given boundary ids %s and %s", name, prev, id)
		}
		paired[name] = id
	}
	return paired, nil
}

// boundariesFor lines the boundary ids up with targets
func (j *Job) boundariesFor(targets []string) []string {
	if len(j.boundaries) == 0 {
		return nil
	}
	out := make([]string, len(targets))
	for i, name := range targets {
		id, ok := j.boundaries[name]
		if !ok {
			id = fetcher.NoBoundary
		}
		out[i] = id
	}
	return out
}

// Operation returns the job's operation
func (j *Job) Operation() bugsplat.Operation {
	return j.op
}

// Deps are the collaborators of a run
type Deps struct {
	Client    bugsplat.API
	Databases []config.Database
	Username  string
	Password  string
	Sink      output.Sink
	Logger    zerolog.Logger
}

// Report describes a finished run
type Report struct {
	Selected []string
	Results  fetcher.ResultSet
	Filtered *filter.Result
	Export   *export.Summary
}

// Run executes the job. Only a login failure, an export directory problem,
// cancellation or a failed write end it with an error; failing pages and
// archives are logged and reflected in the report.
func (j *Job) Run(ctx context.Context, deps Deps) (*Report, error) {
	log := deps.Logger.With().Str("op", j.op.Name()).Logger()
	report := &Report{}

	targets, ok := selectTargets(log, deps.Databases, j.criteria)
	if !ok {
		return report, nil
	}
	report.Selected = selector.Names(targets)

	if err := deps.Client.Login(ctx, deps.Username, deps.Password); err != nil {
		return report, fmt.Errorf("login failed: %w", err)
	}

	log.Info().
		Strs("databases", report.Selected).
		Int("count", j.count).
		Msg("Fetching records")

	rs := fetcher.New(deps.Client, log).Collect(ctx, j.op, report.Selected, j.count, j.boundariesFor(report.Selected))
	report.Results = rs

	for _, failed := range rs.Failures() {
		log.Warn().
			Str("database", failed.Database).
			Int("kept", len(failed.Rows)).
			Err(failed.Err).
			Msg("Database finished early")
	}

	if j.filter != nil {
		res := filter.Apply(j.filter, rs)
		report.Filtered = &res
		report.Results = res.Results
		log.Info().
			Str("filter", j.filter.Expression()).
			Int("kept", res.Kept).
			Int("dropped", res.Dropped).
			Int("errors", len(res.Errors)).
			Msg("Applied filter")
		for _, err := range res.Errors {
			log.Debug().Err(err).Msg("Filter evaluation failed")
		}
	}

	if j.zip && ctx.Err() == nil {
		sum, err := export.New(deps.Client, j.zipDir, j.overwrite, log).ExportAll(ctx, report.Results)
		report.Export = &sum
		log.Info().
			Int("downloaded", sum.Downloaded).
			Int("skipped", sum.Skipped).
			Int("failed", sum.Failed).
			Msg("Archive export finished")
		if err != nil && !errors.Is(err, context.Canceled) {
			return report, fmt.Errorf("export failed: %w", err)
		}
	}

	if err := deps.Sink.Write(report.Results); err != nil {
		return report, err
	}

	log.Info().
		Int("records", report.Results.TotalRecords()).
		Int("databases", len(report.Results)).
		Msg("Fetch complete")

	return report, ctx.Err()
}

func selectTargets(log zerolog.Logger, dbs []config.Database, c selector.Criteria) ([]config.Database, bool) {
	if unknown := selector.Unknown(dbs, c.Databases); len(unknown) > 0 {
		log.Warn().Strs("databases", unknown).Msg("Ignoring databases that are not configured")
	}

	targets := selector.Select(dbs, c)
	if len(targets) == 0 {
		log.Info().
			Strs("databases", c.Databases).
			Strs("tags", c.Tags).
			Str("match", string(c.Mode)).
			Msg("No databases matched the selection, nothing to do")
		return nil, false
	}
	return targets, true
}
