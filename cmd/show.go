package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/splatctl/output"
	"github.com/s0up4200/splatctl/selector"
)

// showCmd lists configured databases and which ones the current flags select
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configured databases and the current selection",
	Long: `Show every database in the configuration with its tags, and mark the ones
that --db, --tags and --match select. No request is sent to BugSplat.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	sel := selection()
	mode, err := selector.ParseMatchMode(sel.MatchMode)
	if err != nil {
		return err
	}

	if unknown := selector.Unknown(cfg.Databases, sel.Databases); len(unknown) > 0 {
		logger.Warn().Strs("databases", unknown).Msg("Databases not found in configuration")
	}

	selected := selector.Select(cfg.Databases, selector.Criteria{
		Databases:  sel.Databases,
		Tags:       sel.Tags,
		Mode:       mode,
		DefaultTag: sel.DefaultTag,
	})

	if err := output.PrintDatabases(cmd.OutOrStdout(), cfg.Databases, selected); err != nil {
		return err
	}
	if cfg.Domain != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Default email domain: %s\n", cfg.Domain)
	}
	return nil
}
