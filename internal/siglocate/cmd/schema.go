package cmd

import (
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"siglocate/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for config.json in the siglocate configuration directory",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeSchema(cmd.OutOrStdout())
	},
}

func writeSchema(w io.Writer) error {
	reflector := new(jsonschema.Reflector)
	if err := writeJSON(w, reflector.Reflect(&config.Config{})); err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
