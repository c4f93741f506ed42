package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/dshills/codecheck/internal/analysis"
)

const snippetLen = 200

// ShapeError reports a response body that could not be mapped onto the
// result model. The entry returned alongside it is still usable.
type ShapeError struct {
	Endpoint string
	Reason   string
	Snippet  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected %s response: %s", e.Endpoint, e.Reason)
}

// Diagnostic builds the text entry shown in place of an unusable body.
func (e *ShapeError) Diagnostic() analysis.Entry {
	return analysis.Text(fmt.Sprintf("[unexpected %s response: %s]\n%s", e.Endpoint, e.Reason, e.Snippet))
}

func shapeError(endpoint, reason string, body []byte) (analysis.Entry, error) {
	e := &ShapeError{Endpoint: endpoint, Reason: reason, Snippet: snippet(body)}
	return e.Diagnostic(), e
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if r := []rune(s); len(r) > snippetLen {
		return string(r[:snippetLen]) + "..."
	}
	return s
}

// Response normalizes body for the endpoint that mode selects. original is
// the submitted source and becomes the diff base of review chunks.
func Response(mode analysis.Mode, body []byte, original string) (analysis.Entry, error) {
	switch mode {
	case analysis.ModeFormat:
		return Format(body)
	case analysis.ModeGPTFormat:
		return GPTFormat(body), nil
	case analysis.ModeReview:
		return Review(body, original)
	case analysis.ModeScan:
		return Scan(body)
	default:
		return shapeError(string(mode), "unknown mode", body)
	}
}

// Format normalizes a rule-engine response: {"formatted": "..."}.
func Format(body []byte) (analysis.Entry, error) {
	var raw struct {
		Formatted *string `json:"formatted"`
		Error     string  `json:"error"`
	}
	if err := decode(body, &raw); err != nil {
		return shapeError("format", err.Error(), body)
	}
	if raw.Formatted == nil {
		if raw.Error != "" {
			return analysis.Text(raw.Error), nil
		}
		return shapeError("format", `missing "formatted" field`, body)
	}
	return analysis.Text(*raw.Formatted), nil
}

// GPTFormat normalizes a GPT formatter response: plain text, possibly
// wrapped in a code fence.
func GPTFormat(body []byte) analysis.Entry {
	return analysis.Text(StripFence(string(body)))
}

type rawChunk struct {
	ChunkIndex     int    `json:"chunk_index"`
	Markdown       string `json:"markdown"`
	RefactoredCode string `json:"refactored_code"`
}

// Review normalizes a chunked review response.
func Review(body []byte, original string) (analysis.Entry, error) {
	var raw struct {
		Summary         string      `json:"summary"`
		Reviews         *[]rawChunk `json:"reviews"`
		FinalRefactored string      `json:"final_refactored"`
		SastResult      string      `json:"sast_result"`
		Error           string      `json:"error"`
	}
	if err := decode(body, &raw); err != nil {
		return shapeError("review", err.Error(), body)
	}
	if raw.Reviews == nil {
		if raw.Error != "" {
			return analysis.Text(raw.Error), nil
		}
		if raw.Summary == "" {
			return shapeError("review", `missing "reviews" field`, body)
		}
	}

	var chunks []analysis.ReviewChunk
	if raw.Reviews != nil {
		chunks = make([]analysis.ReviewChunk, 0, len(*raw.Reviews))
		for _, rc := range *raw.Reviews {
			sections := Sections(rc.Markdown)
			code := rc.RefactoredCode
			if code == "" {
				code = LastFencedBlock(rc.Markdown)
			}
			if code == "" && sections.RefactoredCode != "" {
				code = StripFence(sections.RefactoredCode)
			}
			chunks = append(chunks, analysis.ReviewChunk{
				Index:          rc.ChunkIndex,
				Markdown:       rc.Markdown,
				Sections:       sections,
				RefactoredCode: code,
				DiffBase:       original,
			})
		}
	}
	entry := analysis.Review(chunks, raw.Summary, raw.FinalRefactored)
	entry.Text = raw.SastResult
	return entry, nil
}

type rawGroup struct {
	Language  string            `json:"language"`
	ParseTime float64           `json:"parse_time"`
	Findings  []json.RawMessage `json:"findings"`
}

// Scan normalizes a static-analysis response. Findings grouped by language
// produce a findings entry (an empty list is a valid result); a single
// result or error string produces a text entry.
func Scan(body []byte) (analysis.Entry, error) {
	var raw map[string]json.RawMessage
	if err := decode(body, &raw); err != nil {
		return shapeError("scan", err.Error(), body)
	}
	if msg, ok := raw["findings_by_language"]; ok {
		var groups []rawGroup
		if err := json.Unmarshal(msg, &groups); err != nil {
			return shapeError("scan", "findings_by_language: "+err.Error(), body)
		}
		out := make([]analysis.LanguageFindings, 0, len(groups))
		for _, g := range groups {
			findings := make([]string, 0, len(g.Findings))
			for _, f := range g.Findings {
				findings = append(findings, findingText(f))
			}
			out = append(out, analysis.LanguageFindings{
				Language:     g.Language,
				ParseSeconds: g.ParseTime,
				Findings:     findings,
			})
		}
		return analysis.Findings(out), nil
	}
	for _, key := range []string{"sast_result", "error"} {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return shapeError("scan", key+" is not a string", body)
		}
		return analysis.Text(s), nil
	}
	return shapeError("scan", "no findings_by_language, sast_result or error field", body)
}

// findingText renders a finding as text. Findings are usually strings;
// anything else is kept as compact JSON.
func findingText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// decode unmarshals a JSON body, falling back to jsonrepair when the body is
// fenced or slightly malformed.
func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty body")
	}
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	repaired, rerr := jsonrepair.JSONRepair(StripFence(string(body)))
	if rerr != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err2 := json.Unmarshal([]byte(repaired), v); err2 != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
