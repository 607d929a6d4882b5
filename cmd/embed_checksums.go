package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/checksums"
	"github.com/bedag/subst-installer/pkg/fetch"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	// Flags for embed-checksums command
	embedVersion  string
	embedOutput   string
	embedMode     string
	embedFile     string
	embedTemplate string
)

// EmbedChecksumsCommand represents the embed-checksums command
var EmbedChecksumsCommand = &cobra.Command{
	Use:   "embed-checksums",
	Short: "Create a pinned release table for a new version",
	Long: `Creates the release table of a new version from the current one, pinning the
SHA-256 digest of every platform archive. This command supports three modes of
operation:
- download: Fetches the goreleaser checksum file published with the release
- checksum-file: Uses a local checksum file
- calculate: Downloads the archives and calculates checksums directly

Platforms without a checksum are left out of the new table.`,
	Example: `  # Pin a new release from its published checksums
  subst-installer embed-checksums --version v0.0.2 -o pkg/release/tables/subst_0.0.2.yml

  # Use a checksum file downloaded by hand
  subst-installer embed-checksums --version v0.0.2 --mode checksum-file --file checksums.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("Running embed-checksums command...")

		var mode checksums.EmbedMode
		switch embedMode {
		case "download":
			mode = checksums.EmbedModeDownload
		case "checksum-file":
			mode = checksums.EmbedModeChecksumFile
		case "calculate":
			mode = checksums.EmbedModeCalculate
		default:
			return fmt.Errorf("invalid mode: %s. Must be one of: download, checksum-file, calculate", embedMode)
		}
		if mode == checksums.EmbedModeChecksumFile && embedFile == "" {
			return fmt.Errorf("--file flag is required for checksum-file mode")
		}

		template, err := loadTable("")
		if err != nil {
			return err
		}

		embedder := &checksums.Embedder{
			Mode:             mode,
			Version:          embedVersion,
			Template:         template,
			ChecksumFile:     embedFile,
			ChecksumTemplate: embedTemplate,
			Fetcher:          fetch.New(fetch.DefaultTimeout),
		}

		log.Infof("Embedding checksums using %s mode for version: %s", mode, embedVersion)
		table, err := embedder.Embed(cmd.Context())
		if err != nil {
			log.WithError(err).Error("Failed to embed checksums")
			return fmt.Errorf("failed to embed checksums: %w", err)
		}

		data, err := yaml.Marshal(table)
		if err != nil {
			return fmt.Errorf("failed to marshal release table: %w", err)
		}

		if embedOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		outputDir := filepath.Dir(embedOutput)
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
		if err := os.WriteFile(embedOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write release table to file %s: %w", embedOutput, err)
		}
		log.Infof("Release table for %s %s written to %s", table.Name, table.Version, embedOutput)
		return nil
	},
}

func init() {
	EmbedChecksumsCommand.Flags().StringVar(&embedVersion, "version", "", "Version to pin")
	EmbedChecksumsCommand.Flags().StringVarP(&embedOutput, "output", "o", "", "Output path for the new release table (default: stdout)")
	EmbedChecksumsCommand.Flags().StringVarP(&embedMode, "mode", "m", "download", "Checksums acquisition mode (download, checksum-file, calculate)")
	EmbedChecksumsCommand.Flags().StringVarP(&embedFile, "file", "f", "", "Path to checksum file (required for checksum-file mode)")
	EmbedChecksumsCommand.Flags().StringVar(&embedTemplate, "checksum-template", checksums.DefaultChecksumTemplate, "Checksum file name in download mode")

	EmbedChecksumsCommand.MarkFlagRequired("version")
}
