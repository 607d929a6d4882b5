package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/spf13/cobra"
)

var (
	// Flags for check command
	checkVersion string
)

// CheckCommand represents the check command
var CheckCommand = &cobra.Command{
	Use:   "check",
	Short: "Validate a release table",
	Long: `Checks a release table by:
- Validating every variant carries an OS, an architecture, a URL and a SHA-256 digest
- Rejecting tables with more than one variant for the same platform
- Printing the platform matrix with the URL each platform resolves to`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("Running check command...")

		table, err := loadTable(checkVersion)
		if err != nil {
			return err
		}

		displayVariants(cmd.OutOrStdout(), table)

		if err := table.Validate(); err != nil {
			log.WithError(err).Error("Release table validation failed")
			return fmt.Errorf("validation failed: %w", err)
		}

		log.Infof("✓ %s %s: %d platforms", table.Name, table.Version, len(table.Variants))
		return nil
	},
}

func init() {
	CheckCommand.Flags().StringVar(&checkVersion, "version", "", "Embedded release to check (default: newest)")
}

// displayVariants writes the platform matrix of table in a table format.
// Platforms listed more than once are marked ambiguous.
func displayVariants(out io.Writer, table *spec.ReleaseTable) {
	if len(table.Variants) == 0 {
		fmt.Fprintln(out, "No variants defined")
		return
	}

	counts := make(map[spec.Platform]int, len(table.Variants))
	for _, v := range table.Variants {
		counts[v.Platform()]++
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tSTATUS\tURL")
	fmt.Fprintln(w, "--------\t------\t---")

	for _, v := range table.Variants {
		status := "ok"
		if n := counts[v.Platform()]; n > 1 {
			status = fmt.Sprintf("ambiguous (%d)", n)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.Platform(), status, v.URL)
	}

	w.Flush()
}
