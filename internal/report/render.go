package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the machine-readable form of a run's reports
type Document struct {
	Passed    int              `json:"passed" yaml:"passed"`
	Failed    int              `json:"failed" yaml:"failed"`
	Endpoints []EndpointReport `json:"endpoints" yaml:"endpoints"`
}

// ValidFormat reports whether format is a supported output format
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Render writes reports to w in the given format
func Render(w io.Writer, reports []EndpointReport, format string) error {
	passed, failed := Counts(reports)
	doc := Document{Passed: passed, Failed: failed, Endpoints: reports}
	if doc.Endpoints == nil {
		doc.Endpoints = []EndpointReport{}
	}

	switch format {
	case FormatText, "":
		NewPrinter(w).Reports(reports)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (expected %s, %s or %s)", format, FormatText, FormatJSON, FormatYAML)
	}
}
