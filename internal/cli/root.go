// Package cli implements the sceneql command line interface.
//
// The CLI runs the query engine against a scene snapshot loaded from a
// YAML file. It exists for development and testing; embedded hosts use
// the engine package directly against their live scene.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "table" | "csv"

	Scene   string // scene snapshot YAML path
	Catalog string // schema catalog directory (empty: built-in catalog)
	History string // history database path (empty: no audit log)

	MaxRows  int
	MaxDepth int
	Timeout  time.Duration
	MaxBytes int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"json", "table", "csv"}

// NewRootCommand creates the root command for the sceneql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sceneql",
		Short: "sceneql - scene query engine",
		Long:  "A bounded, read-only query engine over 3D scene snapshots.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|table|csv)")
	cmd.PersistentFlags().StringVarP(&opts.Scene, "scene", "s", "", "scene snapshot YAML file")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "schema catalog directory (default: built-in catalog)")
	cmd.PersistentFlags().StringVar(&opts.History, "history", "", "query history database path")
	cmd.PersistentFlags().IntVar(&opts.MaxRows, "max-rows", 1000, "maximum result rows")
	cmd.PersistentFlags().IntVar(&opts.MaxDepth, "max-depth", 3, "maximum relationship hops per field path")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "execution wall-clock budget")
	cmd.PersistentFlags().IntVar(&opts.MaxBytes, "max-bytes", 1<<20, "maximum serialized payload bytes")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
