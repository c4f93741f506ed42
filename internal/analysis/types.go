package analysis

import (
	"fmt"
	"time"
)

// Mode selects the service endpoint a file is submitted to.
type Mode string

const (
	ModeFormat    Mode = "format"
	ModeGPTFormat Mode = "gpt-format"
	ModeReview    Mode = "review"
	ModeScan      Mode = "scan"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFormat, ModeGPTFormat, ModeReview, ModeScan:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode: %s", s)
	}
}

// IsFormat reports whether the mode runs through a formatter.
func (m Mode) IsFormat() bool {
	return m == ModeFormat || m == ModeGPTFormat
}

// FormatOptions are the rule-engine settings.
type FormatOptions struct {
	Indent string `json:"indent" yaml:"indent"`
	Brace  string `json:"brace" yaml:"brace"`
	Comma  string `json:"comma" yaml:"comma"`
}

// DefaultFormatOptions mirrors the service defaults.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{Indent: "4", Brace: "same-line", Comma: "leading"}
}

// Validate checks option values against what the formatter accepts.
func (o FormatOptions) Validate() error {
	switch o.Indent {
	case "2", "4", "8", "tab":
	default:
		return fmt.Errorf("indent must be 2, 4, 8 or tab, got %q", o.Indent)
	}
	switch o.Brace {
	case "same-line", "next-line":
	default:
		return fmt.Errorf("brace must be same-line or next-line, got %q", o.Brace)
	}
	switch o.Comma {
	case "leading", "trailing":
	default:
		return fmt.Errorf("comma must be leading or trailing, got %q", o.Comma)
	}
	return nil
}

// RunConfig is the per-file configuration for one submission. Only fields
// that change the service's output belong here.
type RunConfig struct {
	Mode        Mode          `json:"mode" yaml:"mode"`
	Format      FormatOptions `json:"format" yaml:"format"`
	Model       string        `json:"model,omitempty" yaml:"model,omitempty"`
	Language    string        `json:"language,omitempty" yaml:"language,omitempty"`
	SummaryOnly bool          `json:"summaryOnly,omitempty" yaml:"summaryOnly,omitempty"`
	GPTFeedback bool          `json:"gptFeedback,omitempty" yaml:"gptFeedback,omitempty"`
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-3.5-turbo"

// DefaultRunConfig returns the configuration assigned to newly added files.
func DefaultRunConfig(mode Mode) RunConfig {
	return RunConfig{
		Mode:   mode,
		Format: DefaultFormatOptions(),
		Model:  DefaultModel,
	}
}

// Kind tags the variant held by an Entry.
type Kind int

const (
	KindText Kind = iota + 1
	KindFindings
	KindReview
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFindings:
		return "findings"
	case KindReview:
		return "review"
	default:
		return "unknown"
	}
}

// LanguageFindings is one static-analysis result group.
type LanguageFindings struct {
	Language     string   `json:"language" yaml:"language"`
	ParseSeconds float64  `json:"parseSeconds" yaml:"parseSeconds"`
	Findings     []string `json:"findings" yaml:"findings"`
}

// Sections are the named parts of a review chunk's markdown.
type Sections struct {
	Description    string `json:"description" yaml:"description"`
	Issues         string `json:"issues" yaml:"issues"`
	Changes        string `json:"changes" yaml:"changes"`
	RefactoredCode string `json:"refactoredCode" yaml:"refactoredCode"`
}

// ReviewChunk is the review of one service-side chunk of a file.
type ReviewChunk struct {
	Index          int      `json:"index" yaml:"index"`
	Markdown       string   `json:"markdown" yaml:"markdown"`
	Sections       Sections `json:"sections" yaml:"sections"`
	RefactoredCode string   `json:"refactoredCode" yaml:"refactoredCode"`
	DiffBase       string   `json:"-" yaml:"-"`
}

// Entry is a normalized result. Kind selects which fields are meaningful:
// Text for KindText; Groups for KindFindings; Chunks, Summary and
// Refactored for KindReview (Text then holds an optional scan result).
type Entry struct {
	Kind       Kind               `json:"kind" yaml:"kind"`
	Text       string             `json:"text,omitempty" yaml:"text,omitempty"`
	Groups     []LanguageFindings `json:"groups,omitempty" yaml:"groups,omitempty"`
	Chunks     []ReviewChunk      `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Summary    string             `json:"summary,omitempty" yaml:"summary,omitempty"`
	Refactored string             `json:"refactored,omitempty" yaml:"refactored,omitempty"`
}

// Text builds an opaque text entry.
func Text(s string) Entry {
	return Entry{Kind: KindText, Text: s}
}

// Findings builds a findings entry. A nil or empty slice means no findings.
func Findings(groups []LanguageFindings) Entry {
	if groups == nil {
		groups = []LanguageFindings{}
	}
	return Entry{Kind: KindFindings, Groups: groups}
}

// Review builds a chunked review entry.
func Review(chunks []ReviewChunk, summary, refactored string) Entry {
	if chunks == nil {
		chunks = []ReviewChunk{}
	}
	return Entry{Kind: KindReview, Chunks: chunks, Summary: summary, Refactored: refactored}
}

// FindingCount returns the number of findings across all groups.
func (e Entry) FindingCount() int {
	n := 0
	for _, g := range e.Groups {
		n += len(g.Findings)
	}
	return n
}

// PlainText flattens the entry into exportable text.
func (e Entry) PlainText() string {
	switch e.Kind {
	case KindText:
		return e.Text
	case KindFindings:
		return formatGroups(e.Groups)
	case KindReview:
		if e.Refactored != "" {
			return e.Refactored
		}
		var out string
		for _, c := range e.Chunks {
			if c.RefactoredCode == "" {
				continue
			}
			if out != "" {
				out += "\n"
			}
			out += c.RefactoredCode
		}
		return out
	default:
		return ""
	}
}

func formatGroups(groups []LanguageFindings) string {
	if len(groups) == 0 {
		return "No findings."
	}
	var out string
	for i, g := range groups {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("[%s] %d finding(s) in %.3fs\n", g.Language, len(g.Findings), g.ParseSeconds)
		for _, f := range g.Findings {
			out += "- " + f + "\n"
		}
	}
	return out
}

// Status is the per-file outcome of a batch.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// FailureText is the entry text recorded for a failed file.
const FailureText = "[processing error]"

// Outcome is the result slot for one file of a batch.
type Outcome struct {
	Index  int    `json:"index" yaml:"index"`
	Name   string `json:"name" yaml:"name"`
	Mode   Mode   `json:"mode" yaml:"mode"`
	Status Status `json:"status" yaml:"status"`
	Entry  Entry  `json:"entry" yaml:"entry"`
	Cached bool   `json:"cached,omitempty" yaml:"cached,omitempty"`
	Err    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failure builds the sentinel outcome for a file that could not be processed.
func Failure(index int, name string, mode Mode, err error) Outcome {
	o := Outcome{Index: index, Name: name, Mode: mode, Status: StatusFailed, Entry: Text(FailureText)}
	if err != nil {
		o.Err = err.Error()
	}
	return o
}

// Job is a snapshot of one file handed to the orchestrator.
type Job struct {
	Name   string
	Ext    string
	Load   func() ([]byte, error)
	Config RunConfig
}

// Counts summarizes a batch.
type Counts struct {
	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	CacheHits int `json:"cacheHits" yaml:"cacheHits"`
}

// Timing contains performance metrics.
type Timing struct {
	ServiceMs int64 `json:"serviceMs" yaml:"serviceMs"`
	TotalMs   int64 `json:"totalMs" yaml:"totalMs"`
}

// Report is the published result of one batch, indexed like the file set
// at the time the batch was launched.
type Report struct {
	Tool      string    `json:"tool" yaml:"tool"`
	Version   string    `json:"version" yaml:"version"`
	RunID     string    `json:"runId" yaml:"runId"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`
	Counts    Counts    `json:"counts" yaml:"counts"`
	Outcomes  []Outcome `json:"outcomes" yaml:"outcomes"`
	Timing    Timing    `json:"timing" yaml:"timing"`
}

// ComputeCounts tallies outcomes.
func ComputeCounts(outcomes []Outcome) Counts {
	c := Counts{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusOK:
			c.Succeeded++
		case StatusFailed:
			c.Failed++
		case StatusSkipped:
			c.Skipped++
		}
		if o.Cached {
			c.CacheHits++
		}
	}
	return c
}
