package cmd

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/bedag/subst-installer/pkg/config"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
	quiet      bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "subst-installer",
	Short: "Verified installer for the subst binary",
	Long: `subst-installer downloads the subst release built for this machine,
verifies its SHA-256 digest against a pinned release table and installs the
executable atomically.

The release table is embedded in the installer. A table file can be supplied
with --config or placed at ` + config.DefaultConfigPath + ` in the working
directory or any of its parents.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetHandler(cli.New(cmd.ErrOrStderr()))
		if verbose {
			log.SetLevel(log.DebugLevel)
			log.Debugf("Verbose logging enabled")
		} else if quiet {
			log.SetLevel(log.ErrorLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
		log.Debugf("Config file: %s", configFile)
	},
}

// loadTable loads the release table selected by --config, falling back to
// a discovered table file and then to the embedded table for version.
func loadTable(version string) (*spec.ReleaseTable, error) {
	table, source, err := config.LoadOrDefault(configFile, version)
	if err != nil {
		return nil, err
	}
	log.Debugf("Using %s release table %s %s", source, table.Name, table.Version)
	return table, nil
}

func init() {
	// Disable automatic command sorting to maintain semantic order
	cobra.EnableCommandSorting = false

	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a release table file (default: embedded table)")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Increase log verbosity")
	RootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress output")

	RootCmd.AddGroup(&cobra.Group{
		ID:    "install",
		Title: "Install Commands:",
	})
	RootCmd.AddGroup(&cobra.Group{
		ID:    "utility",
		Title: "Utility Commands:",
	})

	RootCmd.SetHelpCommandGroupID("utility")
	RootCmd.SetCompletionCommandGroupID("utility")

	InstallCommand.GroupID = "install"
	PlatformCommand.GroupID = "install"
	CheckCommand.GroupID = "utility"
	TableCommand.GroupID = "utility"
	SchemaCommand.GroupID = "utility"
	EmbedChecksumsCommand.GroupID = "utility"

	RootCmd.AddCommand(InstallCommand)
	RootCmd.AddCommand(PlatformCommand)
	RootCmd.AddCommand(CheckCommand)
	RootCmd.AddCommand(TableCommand)
	RootCmd.AddCommand(SchemaCommand)
	RootCmd.AddCommand(EmbedChecksumsCommand)
}
