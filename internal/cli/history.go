package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/perch3d/sceneql/internal/engine"
	"github.com/perch3d/sceneql/internal/history"
)

// NewHistoryCommand creates the "history" subcommand: list the most
// recent entries from the query audit log.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.History == "" {
				return NewExitError(ExitCommandError, "no history database: pass --history <path>")
			}
			store, err := history.Open(opts.History)
			if err != nil {
				return WrapExitError(ExitCommandError, "open history", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "read history", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no entries")
				return nil
			}
			for _, e := range entries {
				printEntry(out, e)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	return cmd
}

func printEntry(out io.Writer, e engine.Entry) {
	status := e.Class.String()
	if e.Class == engine.ClassNone {
		status = fmt.Sprintf("ok rows=%d", e.RowCount)
		if e.Truncated {
			status += " truncated"
		}
		if e.Cancelled {
			status += " cancelled"
		}
	}
	fmt.Fprintf(out, "%s  %s  %-8s  %s\n",
		e.Started.Local().Format(time.DateTime),
		e.QueryID,
		fmt.Sprintf("%.1fms", float64(e.Duration.Microseconds())/1000),
		status)
	fmt.Fprintf(out, "    %s\n", e.Query)
	if e.Error != "" {
		fmt.Fprintf(out, "    error: %s\n", e.Error)
	}
}
