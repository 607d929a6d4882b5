package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/fetch"
	"github.com/bedag/subst-installer/pkg/installer"
	"github.com/bedag/subst-installer/pkg/platform"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/spf13/cobra"
)

var (
	// Flags for install command
	installBinDir   string
	installDryRun   bool
	installPlatform string
	installTimeout  time.Duration
)

// InstallCommand represents the install command
var InstallCommand = &cobra.Command{
	Use:   "install [VERSION]",
	Short: "Install the subst binary for this platform",
	Long: `Install the subst release built for this machine.

The release variant is selected by exact match on the detected OS and
architecture. Its archive is downloaded, the SHA-256 digest is verified against
the release table and the executable is placed in the binary directory with a
single rename.

The binary directory defaults to $SUBST_INSTALLER_BIN, then ~/.local/bin.`,
	Example: `  # Install the newest embedded release
  subst-installer install

  # Install a specific release
  subst-installer install v0.0.1-alpha9

  # Install to a custom directory
  subst-installer install --bin-dir=/usr/local/bin

  # Show what would be installed
  subst-installer install --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

func init() {
	InstallCommand.Flags().StringVarP(&installBinDir, "bin-dir", "b", "", "Installation directory")
	InstallCommand.Flags().BoolVarP(&installDryRun, "dry-run", "n", false, "Dry run mode")
	InstallCommand.Flags().StringVar(&installPlatform, "platform", "", "Install for os/arch instead of the detected platform")
	InstallCommand.Flags().DurationVar(&installTimeout, "timeout", fetch.DefaultTimeout, "Download timeout")
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	version := ""
	if len(args) > 0 {
		version = args[0]
	}

	table, err := loadTable(version)
	if err != nil {
		return err
	}

	target, err := targetPlatform(cmd, installPlatform)
	if err != nil {
		return err
	}
	log.Infof("Platform: %s", target)

	fetcher := fetch.New(installTimeout)
	if !quiet {
		fetcher.Progress = progressPrinter(cmd.ErrOrStderr())
	}

	inst := &installer.Installer{
		Fetcher: fetcher,
		BinDir:  installBinDir,
		DryRun:  installDryRun,
	}
	artifact, err := inst.Install(ctx, version, table, target)
	if err != nil {
		return err
	}

	if artifact.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", artifact.URL, artifact.Path)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), artifact.Path)
	return nil
}

// targetPlatform returns the platform given with --platform, or the
// detected one.
func targetPlatform(cmd *cobra.Command, override string) (spec.Platform, error) {
	if override != "" {
		return platform.Parse(override)
	}
	return platform.Detect(cmd.Context())
}

// progressPrinter reports download progress on w
func progressPrinter(w io.Writer) fetch.ProgressFunc {
	return func(downloaded, total int64) {
		if total > 0 {
			percentage := float64(downloaded) * 100.0 / float64(total)
			fmt.Fprintf(w, "\r%.1f%% (%d/%d bytes)", percentage, downloaded, total)
			if downloaded >= total {
				fmt.Fprintln(w)
			}
		} else {
			fmt.Fprintf(w, "\r%d bytes downloaded", downloaded)
		}
	}
}
