package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bedag/subst-installer/schema"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// SchemaCommand represents the schema command
var SchemaCommand = &cobra.Command{
	Use:   "schema",
	Short: "Display the release table schema",
	Long: `Display the JSON schema of release table files.

The schema describes the files accepted by --config and printed by the table
command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return RunSchema(format, cmd.OutOrStdout())
	},
}

// RunSchema writes the release table schema to w in the given format
func RunSchema(format string, w io.Writer) error {
	s, err := schema.GetReleaseTableSchema()
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	var out []byte
	switch format {
	case "yaml":
		out, err = yaml.Marshal(s)
	case "json":
		out, err = json.MarshalIndent(s, "", "  ")
		out = append(out, '\n')
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to convert to %s: %w", format, err)
	}

	_, err = w.Write(out)
	return err
}

func init() {
	SchemaCommand.Flags().StringP("format", "f", "yaml", "Output format (yaml, json)")
}
