package output

import (
	"io"
	"strings"

	"github.com/dshills/codecheck/internal/analysis"
)

// MarkdownWriter outputs a markdown report with a collapsible section per file.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *analysis.Report) error {
	ew := &errWriter{w: w}
	c := report.Counts

	ew.printf("## codecheck report\n\n")
	ew.printf("| Files | OK | Failed | Skipped | Cache hits |\n")
	ew.printf("|-------|----|--------|---------|------------|\n")
	ew.printf("| %d | %d | %d | %d | %d |\n\n", c.Total, c.Succeeded, c.Failed, c.Skipped, c.CacheHits)

	if c.Total == 0 {
		ew.println("No files processed.")
		return ew.err
	}

	for _, o := range report.Outcomes {
		ew.printf("<details>\n<summary>%s %s</summary>\n\n", statusIcon(o.Status), o.Name)
		switch o.Status {
		case analysis.StatusFailed:
			ew.printf("**Failed:** %s\n\n", o.Err)
		case analysis.StatusSkipped:
			ew.printf("_Skipped:_ %s\n\n", o.Entry.Text)
		default:
			writeEntryMarkdown(ew, o)
		}
		ew.printf("</details>\n\n")
	}
	return ew.err
}

func writeEntryMarkdown(ew *errWriter, o analysis.Outcome) {
	lang := analysis.LanguageFor(analysis.Ext(o.Name))
	e := o.Entry
	switch e.Kind {
	case analysis.KindText:
		if o.Mode.IsFormat() {
			ew.printf("```%s\n%s\n```\n\n", lang, e.Text)
		} else {
			ew.printf("%s\n\n", e.Text)
		}
	case analysis.KindFindings:
		if len(e.Groups) == 0 {
			ew.printf("No findings. :white_check_mark:\n\n")
			return
		}
		for _, g := range e.Groups {
			ew.printf("#### %s (%d, %.3fs)\n\n", g.Language, len(g.Findings), g.ParseSeconds)
			for _, f := range g.Findings {
				ew.printf("- %s\n", f)
			}
			ew.printf("\n")
		}
	case analysis.KindReview:
		if e.Summary != "" {
			ew.printf("**Summary:** %s\n\n", e.Summary)
		}
		for _, c := range e.Chunks {
			ew.printf("### Chunk %d\n\n%s\n\n", c.Index+1, strings.TrimSpace(c.Markdown))
		}
		if e.Refactored != "" {
			ew.printf("#### Final refactored code\n\n```%s\n%s\n```\n\n", lang, e.Refactored)
		}
	}
}

func statusIcon(s analysis.Status) string {
	switch s {
	case analysis.StatusOK:
		return ":white_check_mark:"
	case analysis.StatusFailed:
		return ":x:"
	case analysis.StatusSkipped:
		return ":fast_forward:"
	default:
		return ":grey_question:"
	}
}
