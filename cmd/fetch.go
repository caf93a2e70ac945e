package cmd

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/s0up4200/splatctl/job"
	"github.com/s0up4200/splatctl/output"
)

var (
	fetchCount     int
	fetchIDs       []string
	fetchStackKey  string
	fetchZip       bool
	fetchZipDir    string
	fetchOverwrite bool
	fetchOut       string
	filterExpr     string
	preset         string
	metricsFile    string
)

// fetchCmd groups the listing operations
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch records from the selected databases",
	Long: `Fetch the newest records of a listing from every selected database and
write them as one JSON array of {"Database", "Rows"} objects.

Pages of up to 1000 records are requested until --count records are collected.
--id gives, per selected database and in selection order, a record id at which
to stop; that record and everything older are left out. Use "-" to skip a
database:

  splatctl fetch allcrash -c 2500 --db Game_Prod,Game_QA --id 81234,-
  splatctl fetch keycrash --stack-key 42 --zip --zip-dir ./dumps
  splatctl fetch summary --filter 'crashSum > 100' -o summary.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func newFetchCmd(op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, op)
		},
	}
}

func init() {
	pf := fetchCmd.PersistentFlags()
	pf.IntVarP(&fetchCount, "count", "c", 0, "number of records per database (default from config)")
	pf.StringSliceVarP(&fetchIDs, "id", "i", nil, "boundary record id per --db name, in the order given (\"-\" for none)")
	pf.StringVar(&fetchStackKey, "stack-key", "", "stack key id for keycrash")
	pf.BoolVar(&fetchZip, "zip", false, "download the crash archive of every record (allcrash, keycrash)")
	pf.StringVar(&fetchZipDir, "zip-dir", "", "directory for crash archives (default from config)")
	pf.BoolVar(&fetchOverwrite, "overwrite", false, "replace archives that already exist")
	pf.StringVarP(&fetchOut, "out", "o", "", "write results to this file instead of stdout")
	pf.StringVarP(&filterExpr, "filter", "f", "", "only keep records matching this expression")
	pf.StringVar(&preset, "preset", "", "use a filter preset from config")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")

	fetchCmd.AddCommand(
		newFetchCmd("allcrash", "Fetch individual crashes"),
		newFetchCmd("summary", "Fetch crashes grouped by stack key"),
		newFetchCmd("versions", "Fetch application versions"),
		newFetchCmd("users", "Fetch the raw user listing"),
		newFetchCmd("keycrash", "Fetch the crashes of one stack key (requires --stack-key)"),
	)
}

func runFetch(cmd *cobra.Command, op string) (err error) {
	if path := metricsPath(); path != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); werr != nil {
				logger.Error().Err(werr).Str("path", path).Msg("Failed to write metrics file")
			}
		}()
	}

	expr, err := getFilterExpression()
	if err != nil {
		return err
	}

	params := job.Params{
		Selection:  selection(),
		Operation:  op,
		StackKeyID: fetchStackKey,
		Count:      fetchCount,
		Boundaries: fetchIDs,
		Filter:     expr,
		Zip:        fetchZip,
		ZipDir:     fetchZipDir,
		Overwrite:  fetchOverwrite,
	}
	if !cmd.Flags().Changed("count") {
		params.Count = cfg.Fetch.DefaultCount
	}
	if params.ZipDir == "" {
		params.ZipDir = cfg.Export.Dir
	}
	if !cmd.Flags().Changed("overwrite") {
		params.Overwrite = cfg.Export.Overwrite
	}

	j, err := job.New(params)
	if err != nil {
		return err
	}

	deps, err := newDeps(cmd)
	if err != nil {
		return err
	}

	w, err := output.Open(fetchOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()
	deps.Sink = w

	report, err := j.Run(cmd.Context(), deps)
	if report != nil && len(report.Results) > 0 && (verbosity > 0 || fetchOut != "") {
		if perr := output.PrintSummary(cmd.ErrOrStderr(), report.Results); perr != nil {
			logger.Debug().Err(perr).Msg("Failed to print summary")
		}
	}
	if err != nil {
		return err
	}

	if fetchOut != "" && w.Written() {
		logger.Info().Str("path", fetchOut).Msg("Results written")
	}
	return nil
}

func metricsPath() string {
	if metricsFile != "" {
		return metricsFile
	}
	return cfg.Metrics.Textfile
}

// getFilterExpression determines the filter expression to use
func getFilterExpression() (string, error) {
	// Priority: command line filter > preset
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expr, ok := cfg.Filters[strings.ToLower(preset)]; ok {
			if _, err := job.CompileFilter(expr); err != nil {
				return "", fmt.Errorf("preset '%s' is invalid: %w", preset, err)
			}
			return expr, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return "", nil
}
