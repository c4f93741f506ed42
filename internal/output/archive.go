package output

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dshills/codecheck/internal/analysis"
)

// ArchiveName returns the file name under which a successful outcome is
// exported, or "" when the outcome has nothing to export.
func ArchiveName(o analysis.Outcome) string {
	if o.Status != analysis.StatusOK {
		return ""
	}
	name := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(o.Name, "\\", "/")), "/")
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	switch o.Mode {
	case analysis.ModeFormat, analysis.ModeGPTFormat:
		return stem + "_formatted" + ext
	case analysis.ModeReview:
		return stem + "_refactored" + ext
	case analysis.ModeScan:
		return name + ".sast.txt"
	default:
		return ""
	}
}

// WriteArchive writes every successful outcome of the report into a zip
// archive and returns the number of files written.
func WriteArchive(w io.Writer, report *analysis.Report) (int, error) {
	zw := zip.NewWriter(w)
	written := 0
	seen := make(map[string]bool)

	for _, o := range report.Outcomes {
		name := ArchiveName(o)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modTime(report),
		})
		if err != nil {
			return written, fmt.Errorf("adding %s to archive: %w", name, err)
		}
		if _, err := io.WriteString(fw, o.Entry.PlainText()); err != nil {
			return written, fmt.Errorf("writing %s to archive: %w", name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("closing archive: %w", err)
	}
	return written, nil
}

// WriteArchiveFile writes the archive to outPath.
func WriteArchiveFile(report *analysis.Report, outPath string) (int, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	n, err := WriteArchive(f, report)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing archive file: %w", cerr)
	}
	return n, err
}

func modTime(report *analysis.Report) time.Time {
	if report.StartedAt.IsZero() {
		return time.Now()
	}
	return report.StartedAt
}
