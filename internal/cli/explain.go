package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perch3d/sceneql/internal/engine"
	"github.com/perch3d/sceneql/internal/scene"
)

// NewExplainCommand creates the "explain" subcommand: print the plan a
// query would execute, without executing it.
func NewExplainCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query text>",
		Short: "Show the execution plan for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := schemaOnlyEngine(opts)
			if err != nil {
				return err
			}
			text, err := eng.Explain(args[0])
			if err != nil {
				return queryError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// schemaOnlyEngine builds an engine over an empty scene: enough for
// validate and explain, which never read entities.
func schemaOnlyEngine(opts *RootOptions) (*engine.Engine, error) {
	cat, err := loadCatalog(opts)
	if err != nil {
		return nil, err
	}
	return engine.New(scene.NewMemScene(cat), engine.WithLimits(limitsFromFlags(opts))), nil
}
