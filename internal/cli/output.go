package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// writeJSON prints v as indented JSON. Thai text is written as-is rather
// than \u-escaped.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printImportSummary prints the result of an import run
func printImportSummary(w io.Writer, path string, inserted int, firstID, lastID int64) {
	if inserted == 0 {
		fmt.Fprintf(w, "%s: no rows imported\n", path)
		return
	}
	fmt.Fprintf(w, "%s: imported %d transfers (ids %d-%d)\n", path, inserted, firstID, lastID)
}
