package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/codecheck/internal/analysis"
)

func sampleEntry() analysis.Entry {
	return analysis.Review([]analysis.ReviewChunk{
		{
			Index:          0,
			Markdown:       "1. 기능 설명\nfoo",
			Sections:       analysis.Sections{Description: "foo"},
			RefactoredCode: "a = 1",
			DiffBase:       "a=1",
		},
	}, "summary", "a = 1")
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == entryExt {
			n++
		}
	}
	return n
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	if _, ok := m.Get("fp"); ok {
		t.Error("Expected miss before put")
	}
	if err := m.Put("fp", analysis.Text("one")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok := m.Get("fp")
	if !ok || got.Text != "one" {
		t.Fatalf("Get = %+v, %v; want text one", got, ok)
	}

	// Last write wins
	m.Put("fp", analysis.Text("two"))
	got, _ = m.Get("fp")
	if got.Text != "two" {
		t.Errorf("Got = %q, want two", got.Text)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", m.Len())
	}
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := analysis.HashKey(string(rune('a' + i)))
			m.Put(fp, analysis.Text("x"))
			m.Get(fp)
		}(i)
	}
	wg.Wait()
	if m.Len() != 16 {
		t.Errorf("Len = %d, want 16", m.Len())
	}
}

func TestDisk_PutGet(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 86400)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}

	if _, ok := d.Get("fp"); ok {
		t.Error("Expected cache miss before put")
	}
	want := sampleEntry()
	if err := d.Put("fp", want); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok := d.Get("fp")
	if !ok {
		t.Fatal("Expected cache hit after put")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
	if n := countEntries(t, dir); n != 1 {
		t.Errorf("entries on disk = %d, want 1", n)
	}
}

func TestDisk_TTLExpiration(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 60)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}

	data, err := msgpack.Marshal(record{
		Fingerprint: "old",
		Entry:       analysis.Text("stale"),
		CreatedAt:   time.Now().Add(-2 * time.Minute),
		TTL:         60,
	})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if err := os.WriteFile(d.entryPath("old"), data, 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	stats, err := d.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1", stats.Expired)
	}

	if _, ok := d.Get("old"); ok {
		t.Error("Expected cache miss after TTL expiration")
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("expired entry should be removed on read, %d left", n)
	}
}

func TestDisk_Disabled(t *testing.T) {
	d, err := NewDisk(false, "", 0)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}
	if d.Enabled() {
		t.Error("Disk should be disabled")
	}
	if err := d.Put("key", analysis.Text("value")); err != nil {
		t.Errorf("Put on disabled cache should not error: %v", err)
	}
	if _, ok := d.Get("key"); ok {
		t.Error("Get on disabled cache should always miss")
	}
	if err := d.Clear(); err != nil {
		t.Errorf("Clear on disabled cache should not error: %v", err)
	}
}

func TestDisk_Clear(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 86400)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := d.Put(string(rune('a'+i)), analysis.Text("data")); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	// Unrelated files are left alone
	os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644)

	if n := countEntries(t, dir); n != 5 {
		t.Fatalf("Expected 5 cache entries, got %d", n)
	}
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("Expected 0 cache entries after clear, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestDisk_PutRenameFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 0)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}
	// A directory at the entry path makes the final rename fail.
	if err := os.Mkdir(d.entryPath("fp"), 0o755); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}

	if err := d.Put("fp", analysis.Text("v")); err == nil {
		t.Fatal("Expected Put error when the entry path is a directory")
	}
	if _, err := os.Stat(d.entryPath("fp") + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestDisk_ClearRemovesStaleTemp(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 0)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}
	stale := d.entryPath("fp") + ".tmp"
	if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale temp file survived Clear: %v", err)
	}
}

func TestDisk_Prune(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 60)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}
	if err := d.Put("live", analysis.Text("fresh")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	data, err := msgpack.Marshal(record{
		Fingerprint: "old",
		Entry:       analysis.Text("stale"),
		CreatedAt:   time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if err := os.WriteFile(d.entryPath("old"), data, 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.WriteFile(d.entryPath("torn")+".tmp", []byte("partial"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.WriteFile(d.entryPath("junk"), []byte("not msgpack"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	removed, err := d.Prune()
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if _, ok := d.Get("live"); !ok {
		t.Error("live entry should survive Prune")
	}
	if n := countEntries(t, dir); n != 1 {
		t.Errorf("entries after Prune = %d, want 1", n)
	}
}

func TestDisk_GetStats(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(true, dir, 86400)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}

	stats, err := d.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0", stats.Entries)
	}

	d.Put("key1", analysis.Text("value1"))
	d.Put("key2", analysis.Text("value2"))

	stats, err = d.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalBytes <= 0 {
		t.Error("TotalBytes should be > 0")
	}
	if stats.Dir != dir {
		t.Errorf("Dir = %q, want %q", stats.Dir, dir)
	}
}

func TestLayered_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk, err := NewDisk(true, dir, 0)
	if err != nil {
		t.Fatalf("NewDisk error: %v", err)
	}
	// A previous process wrote the entry.
	if err := disk.Put("fp", analysis.Text("persisted")); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	l := NewLayered(NewMemory(), disk)
	if l.Memory().Len() != 0 {
		t.Fatal("memory layer should start empty")
	}
	got, ok := l.Get("fp")
	if !ok || got.Text != "persisted" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	if l.Memory().Len() != 1 {
		t.Error("disk hit should be promoted to memory")
	}
}

func TestLayered_PutWritesThrough(t *testing.T) {
	dir := t.TempDir()
	disk, _ := NewDisk(true, dir, 0)
	l := NewLayered(nil, disk)

	if err := l.Put("fp", analysis.Text("v")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, ok := l.Memory().Get("fp"); !ok {
		t.Error("memory layer missing entry")
	}
	if _, ok := disk.Get("fp"); !ok {
		t.Error("disk layer missing entry")
	}

	if err := l.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, ok := l.Get("fp"); ok {
		t.Error("Expected miss after Clear")
	}
}

func TestLayered_MemoryOnly(t *testing.T) {
	l := NewLayered(nil, nil)
	if _, ok := l.Get("fp"); ok {
		t.Error("Expected miss")
	}
	if err := l.Put("fp", analysis.Text("v")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, ok := l.Get("fp"); !ok {
		t.Error("Expected hit")
	}
	if err := l.Clear(); err != nil {
		t.Errorf("Clear error: %v", err)
	}
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "codecheck") {
		t.Errorf("DefaultDir = %q", dir)
	}
}
