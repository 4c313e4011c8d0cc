package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/trustfang/pkg/health"
)

// ErrUnknownFormat indicates an unsupported report format.
var ErrUnknownFormat = errors.New("unknown format, expected text, json, yaml, or html")

// renderReport writes the report in the requested format.
func renderReport(report *health.Report, format string, noColor bool, w io.Writer) error {
	switch format {
	case "text":
		return report.WriteText(w, noColor)
	case "json":
		return report.WriteJSON(w)
	case "yaml":
		return report.WriteYAML(w)
	case "html":
		return report.WriteHTML(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
