package fileset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecheck/internal/analysis"
)

func names(s *Set) []string {
	var out []string
	for _, r := range s.Records() {
		out = append(out, r.Name)
	}
	return out
}

func newSet(t *testing.T, files ...string) *Set {
	t.Helper()
	s := New(analysis.DefaultRunConfig(analysis.ModeFormat))
	var srcs []Source
	for _, f := range files {
		srcs = append(srcs, Source{Name: f, Data: []byte(f)})
	}
	n := s.Add(srcs...)
	require.Equal(t, NoticeAdded, n.Kind)
	return s
}

func TestAdd_AssignsDefaultsInOrder(t *testing.T) {
	s := newSet(t, "a.java", "b.SQL", "c.py")
	assert.Equal(t, []string{"a.java", "b.SQL", "c.py"}, names(s))

	recs := s.Records()
	for i, r := range recs {
		assert.Equal(t, i, r.Order)
	}
	assert.Equal(t, "sql", recs[1].Ext)

	cfg, ok := s.Config("c.py")
	require.True(t, ok)
	assert.Equal(t, analysis.DefaultRunConfig(analysis.ModeFormat), cfg)

	d, ok := s.Display("a.java")
	require.True(t, ok)
	assert.False(t, d.ShowOriginal)
}

func TestAdd_DuplicateIsNoop(t *testing.T) {
	s := newSet(t, "a.java", "b.sql")
	n := s.Add(Source{Name: "a.java"})
	assert.Equal(t, NoticeNone, n.Kind)
	assert.Equal(t, []string{"a.java"}, n.Duplicates)
	assert.Contains(t, n.Message, "a.java")
	assert.Equal(t, 2, s.Len())
}

func TestAdd_PartialAndWithinCallDuplicates(t *testing.T) {
	s := newSet(t, "a.java")
	n := s.Add(Source{Name: "b.sql"}, Source{Name: "a.java"}, Source{Name: "b.sql"}, Source{Name: "A.java"})
	assert.Equal(t, NoticeAdded, n.Kind)
	assert.Equal(t, []string{"b.sql", "A.java"}, n.Added)
	assert.Equal(t, []string{"a.java", "b.sql"}, n.Duplicates)
	assert.Equal(t, []string{"a.java", "b.sql", "A.java"}, names(s))
}

func TestRemove_RenumbersAndCleansMaps(t *testing.T) {
	s := newSet(t, "a.py", "b.py", "c.py", "d.py")
	s.Attach([]analysis.Outcome{{Name: "b.py", Status: analysis.StatusOK}})

	n, err := s.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, NoticeRemoved, n.Kind)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"a.py", "c.py", "d.py"}, names(s))
	for i, r := range s.Records() {
		assert.Equal(t, i, r.Order)
	}

	_, ok := s.Config("b.py")
	assert.False(t, ok)
	_, ok = s.Display("b.py")
	assert.False(t, ok)
	_, ok = s.Outcome("b.py")
	assert.False(t, ok)
	assert.Len(t, s.configs, 3)
	assert.Len(t, s.display, 3)
}

func TestRemove_OutOfRange(t *testing.T) {
	s := newSet(t, "a.py")
	_, err := s.Remove(1)
	assert.Error(t, err)
	_, err = s.Remove(-1)
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestRemove_ActiveSelection(t *testing.T) {
	tests := []struct {
		name   string
		active int
		remove int
		want   int
	}{
		{"remove active moves to previous", 2, 2, 1},
		{"remove first active stays at zero", 0, 0, 0},
		{"remove before active keeps same file", 3, 1, 2},
		{"remove after active unchanged", 1, 3, 1},
		{"remove last active", 3, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSet(t, "a", "b", "c", "d")
			require.NoError(t, s.Select(tt.active))
			_, err := s.Remove(tt.remove)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Active())
		})
	}
}

func TestRemove_LastRecordLeavesEmpty(t *testing.T) {
	s := newSet(t, "only.sql")
	_, err := s.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Active())
	assert.Error(t, s.Select(0))
}

func TestJobs_SnapshotConfig(t *testing.T) {
	s := newSet(t, "a.sql", "b.sql")
	cfg := analysis.DefaultRunConfig(analysis.ModeFormat)
	cfg.Format.Indent = "2"
	require.NoError(t, s.SetConfig("b.sql", cfg))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "4", jobs[0].Config.Format.Indent)
	assert.Equal(t, "2", jobs[1].Config.Format.Indent)
	assert.Equal(t, "sql", jobs[1].Ext)

	cfg.Format.Indent = "8"
	require.NoError(t, s.SetConfig("b.sql", cfg))
	assert.Equal(t, "2", jobs[1].Config.Format.Indent, "snapshot must not change")

	content, err := jobs[0].Load()
	require.NoError(t, err)
	assert.Equal(t, "a.sql", string(content))
}

func TestDisplay_CopiesAreIndependent(t *testing.T) {
	s := newSet(t, "r.py")
	expanded := map[int]bool{0: true}
	require.NoError(t, s.SetDisplay("r.py", Display{Expanded: expanded}))

	expanded[1] = true
	d, ok := s.Display("r.py")
	require.True(t, ok)
	assert.Equal(t, map[int]bool{0: true}, d.Expanded, "caller's map must not reach the set")

	d.Expanded[2] = true
	d.ShowOriginal = true
	again, _ := s.Display("r.py")
	assert.Equal(t, map[int]bool{0: true}, again.Expanded, "returned map must not alias the set")
	assert.False(t, again.ShowOriginal)
}

func TestSetConfig_UnknownFile(t *testing.T) {
	s := newSet(t, "a.sql")
	assert.Error(t, s.SetConfig("zz.sql", analysis.RunConfig{}))
	assert.Error(t, s.SetDisplay("zz.sql", Display{}))
}

func TestAttach_IgnoresRemovedFiles(t *testing.T) {
	s := newSet(t, "a.sql", "b.sql")
	_, err := s.Remove(0)
	require.NoError(t, err)
	s.Attach([]analysis.Outcome{
		{Index: 0, Name: "a.sql", Status: analysis.StatusOK},
		{Index: 1, Name: "b.sql", Status: analysis.StatusFailed},
	})
	_, ok := s.Outcome("a.sql")
	assert.False(t, ok)
	o, ok := s.Outcome("b.sql")
	require.True(t, ok)
	assert.Equal(t, analysis.StatusFailed, o.Status)
}

func TestRecord_ContentFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o644))

	s := New(analysis.DefaultRunConfig(analysis.ModeScan))
	s.Add(Source{Name: "q.sql", Path: path})
	r := s.Records()[0]
	data, err := r.Content()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", string(data))

	// Content is read once.
	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	data, _ = r.Content()
	assert.Equal(t, "SELECT 1", string(data))
}

func TestRecord_ContentMissing(t *testing.T) {
	s := New(analysis.DefaultRunConfig(analysis.ModeScan))
	s.Add(Source{Name: "gone.py", Path: filepath.Join(t.TempDir(), "gone.py")})
	_, err := s.Records()[0].Content()
	assert.Error(t, err)
}
