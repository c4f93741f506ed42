package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/codecheck/internal/analysis"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *analysis.Report) error
}

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "markdown", "yaml"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "yaml", "yml":
		return &YAMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *analysis.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// entryBody renders the main content of an entry as plain text.
func entryBody(e analysis.Entry) string {
	switch e.Kind {
	case analysis.KindText, analysis.KindFindings:
		return e.PlainText()
	case analysis.KindReview:
		return reviewBody(e)
	default:
		return ""
	}
}

func detail(o analysis.Outcome) string {
	switch o.Status {
	case analysis.StatusFailed:
		return o.Err
	case analysis.StatusSkipped:
		return o.Entry.Text
	}
	switch o.Entry.Kind {
	case analysis.KindFindings:
		return fmt.Sprintf("%d finding(s)", o.Entry.FindingCount())
	case analysis.KindReview:
		return fmt.Sprintf("%d chunk(s)", len(o.Entry.Chunks))
	default:
		return "text"
	}
}
