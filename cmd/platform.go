package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bedag/subst-installer/pkg/resolve"
	"github.com/bedag/subst-installer/pkg/spec"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Style definitions
var (
	// Color profile detection
	profile = colorprofile.Detect(os.Stdout, os.Environ())

	supportedStyle   = colorStyle("42")
	unsupportedStyle = colorStyle("203")
)

// colorStyle returns a bold style in color when the terminal supports it
func colorStyle(color string) lipgloss.Style {
	if profile == colorprofile.TrueColor || profile == colorprofile.ANSI256 {
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
	}
	return lipgloss.NewStyle().Bold(true)
}

// PlatformCommand represents the platform command
var PlatformCommand = &cobra.Command{
	Use:   "platform",
	Short: "Show the detected platform and whether a release exists for it",
	Long: `Detects the OS family and architecture class of this machine and reports
whether the release table carries a variant for it.

Exits with status 2 when the platform is not supported and 3 when the table
lists it more than once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable("")
		if err != nil {
			return err
		}
		p, err := targetPlatform(cmd, platformOverride)
		if err != nil {
			return err
		}

		_, err = resolve.Select(table, p)
		printPlatform(cmd.OutOrStdout(), table, p, err)
		return err
	},
}

var platformOverride string

func init() {
	PlatformCommand.Flags().StringVar(&platformOverride, "platform", "", "Check os/arch instead of the detected platform")
}

// printPlatform writes one line naming p and the outcome of selecting a
// variant for it.
func printPlatform(w io.Writer, table *spec.ReleaseTable, p spec.Platform, selectErr error) {
	var ambiguous *resolve.AmbiguousVariantError
	switch {
	case selectErr == nil:
		fmt.Fprintf(w, "%s %s\n", p, supportedStyle.Render("supported"))
	case errors.As(selectErr, &ambiguous):
		fmt.Fprintf(w, "%s %s (%d variants)\n", p, unsupportedStyle.Render("ambiguous"), ambiguous.Count)
	default:
		names := make([]string, 0, len(table.Variants))
		for _, sp := range table.Platforms() {
			names = append(names, sp.String())
		}
		fmt.Fprintf(w, "%s %s (available: %s)\n", p, unsupportedStyle.Render("unsupported"), strings.Join(names, ", "))
	}
}
