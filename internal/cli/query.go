package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perch3d/sceneql/internal/engine"
	"github.com/perch3d/sceneql/internal/result"
)

// NewQueryCommand creates the "query" subcommand: run one query against
// the scene snapshot and print the result.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query [query text]",
		Short: "Run a query against the scene",
		Long: `Run a query against the scene snapshot and print the result.

The query is taken from the argument, or read from stdin when no
argument is given:

  sceneql query -s scene.yaml 'SELECT name FROM object WHERE visible = true'
  echo 'SELECT name FROM object' | sceneql query -s scene.yaml

Exit codes: 0 success, 1 query error, 2 command error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := queryText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			eng, cleanup, err := buildEngine(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := eng.Execute(cmd.Context(), query)
			if err != nil {
				return queryError(err)
			}
			return writeOutcome(cmd.OutOrStdout(), opts, out)
		},
	}
}

// queryText resolves the query from the argument or stdin.
func queryText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "read query from stdin", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", NewExitError(ExitCommandError, "empty query: pass query text or pipe it on stdin")
	}
	return text, nil
}

// queryError maps an engine failure to exit code 1, preserving the
// taxonomy in the message.
func queryError(err error) error {
	class := engine.Classify(err)
	return WrapExitError(ExitQueryError, fmt.Sprintf("%s error", class), err)
}

func writeOutcome(w io.Writer, opts *RootOptions, out *engine.Outcome) error {
	switch opts.Format {
	case "json":
		if _, err := w.Write(out.Payload); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	case "csv":
		text, err := result.RenderCSV(out.Set)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		if _, err := fmt.Fprintln(w, result.RenderTable(out.Set)); err != nil {
			return err
		}
		if out.Truncated {
			fmt.Fprintln(os.Stderr, "note: result truncated")
		}
		if out.Cancelled {
			fmt.Fprintln(os.Stderr, "note: query cancelled")
		}
		return nil
	}
}
