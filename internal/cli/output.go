package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/studiowebux/ballast/internal/report"
	"github.com/studiowebux/ballast/internal/types"
)

// writeStructured encodes snapshots as json or yaml
func writeStructured(w io.Writer, snapshots []types.Snapshot, format string) error {
	if snapshots == nil {
		snapshots = []types.Snapshot{}
	}

	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshots); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
	case report.FormatYAML:
		data, err := yaml.Marshal(snapshots)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}
