package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dshills/codecheck/internal/analysis"
)

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONWriter{}
	if err := w.Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var decoded analysis.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.RunID != "test-run" {
		t.Errorf("RunID = %q", decoded.RunID)
	}
	if len(decoded.Outcomes) != 4 {
		t.Fatalf("Outcomes = %d, want 4", len(decoded.Outcomes))
	}
	if decoded.Outcomes[1].Status != analysis.StatusFailed {
		t.Errorf("Outcomes[1].Status = %q", decoded.Outcomes[1].Status)
	}
	if decoded.Counts.Failed != 1 || decoded.Counts.CacheHits != 1 {
		t.Errorf("Counts = %+v", decoded.Counts)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("JSON output should end with a newline")
	}
}

func TestYAMLWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid YAML: %v", err)
	}
	if decoded["runId"] != "test-run" {
		t.Errorf("runId = %v", decoded["runId"])
	}
	outcomes, ok := decoded["outcomes"].([]interface{})
	if !ok || len(outcomes) != 4 {
		t.Fatalf("outcomes = %v", decoded["outcomes"])
	}
}
