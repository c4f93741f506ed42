package redact

import (
	"regexp"
	"strings"

	"github.com/dshills/codecheck/internal/analysis"
)

const (
	placeholder = "[REDACTED]"
	mask        = "****"
)

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
}

var (
	emailPattern = regexp.MustCompile(`([a-zA-Z0-9_.+-]+)@([a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+)`)
	phonePattern = regexp.MustCompile(`\b(01[016789]|02|0[3-9][0-9])-?\d{3,4}-?(\d{4})\b`)
)

// Secrets replaces well-known token shapes in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, placeholder)
	}
	return result
}

// Masker hides sensitive values in result text. Assignments to configured
// keys keep the key and lose the value; emails, phone numbers and known
// token shapes are masked wherever they appear.
type Masker struct {
	assign []*regexp.Regexp
	jsonKV []*regexp.Regexp
}

// NewMasker compiles a masker for the given key names. An underscore or dash
// in a key matches either separator or none.
func NewMasker(keys []string) *Masker {
	m := &Masker{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		expr := keyExpr(k)
		m.assign = append(m.assign, regexp.MustCompile(`(?i)(`+expr+`\s*[=:]\s*)(["']?)[^"',;\n]+(["']?)`))
		m.jsonKV = append(m.jsonKV, regexp.MustCompile(`(?i)("`+expr+`"\s*:\s*")[^"]*(")`))
	}
	return m
}

func keyExpr(key string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' }) {
		if b.Len() > 0 {
			b.WriteString(`[_\-]?`)
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	return b.String()
}

// Text masks a single string.
func (m *Masker) Text(s string) string {
	if s == "" {
		return s
	}
	for _, re := range m.jsonKV {
		s = re.ReplaceAllString(s, "${1}"+mask+"${2}")
	}
	for _, re := range m.assign {
		s = re.ReplaceAllString(s, "${1}${2}"+mask+"${3}")
	}
	s = emailPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := emailPattern.FindStringSubmatch(match)
		return parts[1][:1] + mask + "@" + parts[2]
	})
	s = phonePattern.ReplaceAllStringFunc(s, func(match string) string {
		return match[:3] + "-" + mask + "-" + match[len(match)-4:]
	})
	return Secrets(s)
}

// Entry returns a masked copy of e.
func (m *Masker) Entry(e analysis.Entry) analysis.Entry {
	out := e
	out.Text = m.Text(e.Text)
	out.Summary = m.Text(e.Summary)
	out.Refactored = m.Text(e.Refactored)
	if e.Groups != nil {
		out.Groups = make([]analysis.LanguageFindings, len(e.Groups))
		for i, g := range e.Groups {
			findings := make([]string, len(g.Findings))
			for j, f := range g.Findings {
				findings[j] = m.Text(f)
			}
			g.Findings = findings
			out.Groups[i] = g
		}
	}
	if e.Chunks != nil {
		out.Chunks = make([]analysis.ReviewChunk, len(e.Chunks))
		for i, c := range e.Chunks {
			c.Markdown = m.Text(c.Markdown)
			c.RefactoredCode = m.Text(c.RefactoredCode)
			c.Sections = analysis.Sections{
				Description:    m.Text(c.Sections.Description),
				Issues:         m.Text(c.Sections.Issues),
				Changes:        m.Text(c.Sections.Changes),
				RefactoredCode: m.Text(c.Sections.RefactoredCode),
			}
			c.DiffBase = m.Text(c.DiffBase)
			out.Chunks[i] = c
		}
	}
	return out
}

// Report returns a copy of r with every entry masked.
func (m *Masker) Report(r *analysis.Report) *analysis.Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Outcomes = make([]analysis.Outcome, len(r.Outcomes))
	for i, o := range r.Outcomes {
		o.Entry = m.Entry(o.Entry)
		out.Outcomes[i] = o
	}
	return &out
}
