package result

import (
	"encoding/csv"
	"strings"

	"github.com/perch3d/sceneql/internal/scene"
)

// RenderTable renders the set as an aligned ASCII table for terminal
// display: header row, separator, one line per row, columns padded to
// the widest cell.
func RenderTable(s *Set) string {
	if len(s.Rows) == 0 {
		return "no rows"
	}

	widths := make([]int, len(s.Fields))
	for i, name := range s.Fields {
		widths[i] = len(name)
	}
	cells := make([][]string, len(s.Rows))
	for r, row := range s.Rows {
		cells[r] = make([]string, len(s.Fields))
		for c := range s.Fields {
			var v scene.Value
			if c < len(row) {
				v = row[c]
			}
			text := scene.Display(v)
			cells[r][c] = text
			if len(text) > widths[c] {
				widths[c] = len(text)
			}
		}
	}

	var sb strings.Builder
	for c, name := range s.Fields {
		if c > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(pad(name, widths[c]))
	}
	header := sb.String()
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("-", len(header)))
	for _, row := range cells {
		sb.WriteByte('\n')
		for c, cell := range row {
			if c > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(pad(cell, widths[c]))
		}
	}
	return sb.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// RenderCSV renders the set as CSV with a header row. NULL cells are
// empty; compound values use their display form.
func RenderCSV(s *Set) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(s.Fields); err != nil {
		return "", err
	}
	record := make([]string, len(s.Fields))
	for _, row := range s.Rows {
		for c := range s.Fields {
			var v scene.Value
			if c < len(row) {
				v = row[c]
			}
			if scene.IsNull(v) {
				record[c] = ""
			} else {
				record[c] = scene.Display(v)
			}
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
