package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the "validate" subcommand: parse and bind a
// query against the schema without touching any scene.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <query text>",
		Short: "Check a query against the grammar and schema",
		Long: `Parse and bind the query against the schema catalog without
executing it. No scene snapshot is required.

Exit codes: 0 valid, 1 invalid, 2 command error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := schemaOnlyEngine(opts)
			if err != nil {
				return err
			}
			if err := eng.Validate(args[0]); err != nil {
				return queryError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
