package cmd

import (
	"fmt"

	"github.com/bedag/subst-installer/pkg/release"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	// Flags for table command
	tableVersion string
	tableList    bool
)

// TableCommand represents the table command
var TableCommand = &cobra.Command{
	Use:   "table",
	Short: "Print the effective release table",
	Long: `Prints the release table the install command would use, with defaults
applied and every variant URL expanded. The output is a valid table file for
--config.`,
	Example: `  # Start a mirror table from the embedded one
  subst-installer table > .config/subst-installer.yml

  # List the embedded releases
  subst-installer table --list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tableList {
			versions, err := release.Versions()
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		}

		table, err := loadTable(tableVersion)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(table)
		if err != nil {
			return fmt.Errorf("failed to marshal release table: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	TableCommand.Flags().StringVar(&tableVersion, "version", "", "Embedded release to print (default: newest)")
	TableCommand.Flags().BoolVar(&tableList, "list", false, "List the embedded release versions")
}
