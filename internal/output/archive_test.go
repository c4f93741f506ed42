package output

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/dshills/codecheck/internal/analysis"
)

func TestArchiveName(t *testing.T) {
	tests := []struct {
		name    string
		outcome analysis.Outcome
		want    string
	}{
		{"format", analysis.Outcome{Name: "q.sql", Mode: analysis.ModeFormat, Status: analysis.StatusOK}, "q_formatted.sql"},
		{"gpt format", analysis.Outcome{Name: "dir/App.java", Mode: analysis.ModeGPTFormat, Status: analysis.StatusOK}, "dir/App_formatted.java"},
		{"review", analysis.Outcome{Name: "x.py", Mode: analysis.ModeReview, Status: analysis.StatusOK}, "x_refactored.py"},
		{"scan", analysis.Outcome{Name: "x.py", Mode: analysis.ModeScan, Status: analysis.StatusOK}, "x.py.sast.txt"},
		{"escape", analysis.Outcome{Name: "../../etc/x.py", Mode: analysis.ModeScan, Status: analysis.StatusOK}, "etc/x.py.sast.txt"},
		{"failed", analysis.Outcome{Name: "x.py", Mode: analysis.ModeScan, Status: analysis.StatusFailed}, ""},
		{"skipped", analysis.Outcome{Name: "x.go", Mode: analysis.ModeFormat, Status: analysis.StatusSkipped}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArchiveName(tt.outcome); got != tt.want {
				t.Errorf("ArchiveName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteArchive(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteArchive(&buf, sampleReport())
	if err != nil {
		t.Fatalf("WriteArchive error: %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	got := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = string(data)
	}
	if got["a_formatted.sql"] != "SELECT 1" {
		t.Errorf("a_formatted.sql = %q", got["a_formatted.sql"])
	}
	if got["d_formatted.java"] != "class D {}" {
		t.Errorf("d_formatted.java = %q", got["d_formatted.java"])
	}
	if _, ok := got["b_formatted.sql"]; ok {
		t.Error("failed outcome must not be archived")
	}
}

func TestWriteArchiveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	n, err := WriteArchiveFile(sampleReport(), path)
	if err != nil {
		t.Fatalf("WriteArchiveFile error: %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Errorf("archive entries = %d", len(zr.File))
	}
}
