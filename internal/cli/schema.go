package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perch3d/sceneql/internal/schema"
)

// NewSchemaCommand creates the "schema" subcommand: print the entity
// kinds and fields the catalog exposes, so a caller can see what is
// queryable before writing queries.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [kind]",
		Short: "Show queryable kinds and their fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				kind, ok := cat.Kind(args[0])
				if !ok {
					return NewExitError(ExitQueryError,
						fmt.Sprintf("unknown kind %q (known: %s)", args[0], strings.Join(cat.Kinds(), ", ")))
				}
				printKind(out, kind)
				return nil
			}

			fmt.Fprintf(out, "catalog %s\n", cat.Version)
			for _, name := range cat.Kinds() {
				kind, _ := cat.Kind(name)
				fmt.Fprintln(out)
				printKind(out, kind)
			}
			return nil
		},
	}
}

func printKind(out io.Writer, k *schema.Kind) {
	fmt.Fprintf(out, "%s\n", k.Name)
	for _, f := range k.Fields() {
		fmt.Fprintf(out, "  %-16s %s\n", f.Name, f.Type)
	}
}
