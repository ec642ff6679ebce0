// Package export renders rolls in machine-readable formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. An empty name means text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected text, json or yaml)", name)
	}
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q cannot encode values", format)
	}
}

// WriteEntries writes history entries. The text format prints one line per
// roll.
func WriteEntries(w io.Writer, format Format, entries []model.RollEntry) error {
	if format != FormatText {
		if entries == nil {
			entries = []model.RollEntry{}
		}
		return Encode(w, format, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No rolls found.")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, EntryLine(e)); err != nil {
			return err
		}
	}
	return nil
}

// EntryLine renders an entry as "time  expression = total  (annotation)".
func EntryLine(e model.RollEntry) string {
	line := fmt.Sprintf("%s  %s = %s", e.RolledAt.Local().Format("2006-01-02 15:04:05"), e.Expression, dice.FormatValue(e.Total))
	if e.Annotation != "" {
		line += "  (" + e.Annotation + ")"
	}
	return line
}
