package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/dshills/codecheck/internal/analysis"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *analysis.Report) error {
	ew := &errWriter{w: w}

	c := report.Counts
	ew.printf("codecheck: %d file(s)", c.Total)
	if len(report.Outcomes) > 0 {
		ew.printf(", %s mode", report.Outcomes[0].Mode)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	var table strings.Builder
	tw := tablewriter.NewWriter(&table)
	tw.SetHeader([]string{"#", "File", "Status", "Cached", "Detail"})
	tw.SetBorder(false)
	tw.SetCenterSeparator("")
	tw.SetAutoWrapText(false)
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
	})
	for _, o := range report.Outcomes {
		cached := ""
		if o.Cached {
			cached = "yes"
		}
		tw.Append([]string{fmt.Sprintf("%d", o.Index+1), o.Name, string(o.Status), cached, truncate(detail(o), 60)})
	}
	tw.SetFooter([]string{"", "", fmt.Sprintf("%d ok", c.Succeeded), fmt.Sprintf("%d hit", c.CacheHits),
		fmt.Sprintf("%d failed, %d skipped", c.Failed, c.Skipped)})
	tw.Render()
	ew.printf("%s", table.String())

	for _, o := range report.Outcomes {
		if o.Status != analysis.StatusOK {
			continue
		}
		ew.printf("\n== %s ==\n", o.Name)
		body := strings.TrimRight(entryBody(o.Entry), "\n")
		if body == "" {
			body = "(empty result)"
		}
		ew.println(body)
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (service: %dms)\n", report.Timing.TotalMs, report.Timing.ServiceMs)

	return ew.err
}

func reviewBody(e analysis.Entry) string {
	var b strings.Builder
	if e.Summary != "" {
		b.WriteString("Summary:\n")
		b.WriteString(e.Summary)
		b.WriteString("\n")
	}
	if e.Text != "" {
		b.WriteString("\nStatic analysis:\n")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	for _, c := range e.Chunks {
		fmt.Fprintf(&b, "\n-- chunk %d --\n", c.Index+1)
		s := c.Sections
		if s.Description == "" && s.Issues == "" && s.Changes == "" {
			b.WriteString(c.Markdown)
			b.WriteString("\n")
			continue
		}
		writeSection(&b, "Description", s.Description)
		writeSection(&b, "Issues", s.Issues)
		writeSection(&b, "Changes", s.Changes)
		writeSection(&b, "Refactored code", c.RefactoredCode)
	}
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "%s:\n%s\n", title, body)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
