package google

import (
	"fmt"
	"strings"
)

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, cell := range row {
			vals[j] = cell
		}
		out[i] = vals
	}
	return out
}

// toStrings converts an API values matrix into trimmed strings, padding
// short rows so every row is as wide as the first.
func toStrings(values [][]interface{}) [][]string {
	if len(values) == 0 {
		return nil
	}
	width := len(values[0])
	out := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			cells[j] = strings.TrimSpace(fmt.Sprint(row[j]))
		}
		out = append(out, cells)
	}
	return out
}
