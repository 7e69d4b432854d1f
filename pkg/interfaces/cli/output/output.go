package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"
)

// Render writes v as indented JSON or through its text printer
func Render(w io.Writer, format string, v interface{}, text func(io.Writer) error) error {
	switch format {
	case "", FormatText:
		return text(w)
	case FormatJSON:
		return writeJSON(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
