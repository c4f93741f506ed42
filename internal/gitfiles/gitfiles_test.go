package gitfiles

import (
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"vendor/lib.go", []string{"vendor/**"}, true},
		{"main.go", []string{"vendor/**"}, false},
		{"foo.gen.go", []string{"**/*.gen.go"}, true},
		{"pkg/foo.gen.go", []string{"**/*.gen.go"}, true},
		{"dist/bundle.js", []string{"**/dist/**"}, true},
		{"main.sql", []string{"*.sql"}, true},
		{"main.go", nil, false},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestFilterFiles(t *testing.T) {
	opts := Options{Include: []string{"**/*.py", "*.sql"}, Exclude: []string{"vendor/**"}}
	got := filterFiles(opts, "b.sql\nvendor/x.py\na.py\n", "a.py\nlib/c.py\nREADME.md\n")
	want := []string{"a.py", "b.sql", "lib/c.py"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterFiles = %v, want %v", got, want)
	}
}

func TestCollect_UnknownSource(t *testing.T) {
	if _, err := Collect("everything", Options{}); err == nil {
		t.Error("expected error for unknown source")
	}
}

// setupTestRepo creates a temp git repo with a committed set of files.
func setupTestRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	run("init")
	writeFile(t, dir, "main.py", "print(1)\n")
	writeFile(t, dir, "query.sql", "select 1\n")
	writeFile(t, dir, "vendor/lib.py", "x = 1\n")
	run("add", "-A")
	run("commit", "-m", "init")

	return dir, run
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTracked(t *testing.T) {
	dir, _ := setupTestRepo(t)

	files, err := Tracked(Options{Dir: dir, Exclude: []string{"vendor/**"}})
	if err != nil {
		t.Fatalf("Tracked error: %v", err)
	}
	want := []string{"main.py", "query.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Tracked = %v, want %v", files, want)
	}
}

func TestChangedAndStaged(t *testing.T) {
	dir, run := setupTestRepo(t)

	writeFile(t, dir, "main.py", "print(2)\n")
	writeFile(t, dir, "new.js", "let a = 1\n")
	writeFile(t, dir, "query.sql", "select 2\n")
	run("add", "query.sql")

	changed, err := Changed(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Changed error: %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"main.py", "new.js"}) {
		t.Errorf("Changed = %v", changed)
	}

	staged, err := Staged(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Staged error: %v", err)
	}
	if !reflect.DeepEqual(staged, []string{"query.sql"}) {
		t.Errorf("Staged = %v", staged)
	}
}

func TestRoot(t *testing.T) {
	dir, _ := setupTestRepo(t)

	root, err := Root(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Root error: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("Root = %q, want %q", got, want)
	}
}

func TestRoot_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := Root(Options{Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "not a git repository") {
		t.Errorf("expected not-a-repo error, got %v", err)
	}
}

func TestHookPath(t *testing.T) {
	dir, _ := setupTestRepo(t)

	path, err := HookPath(Options{Dir: dir}, "pre-commit")
	if err != nil {
		t.Fatalf("HookPath error: %v", err)
	}
	want := filepath.Join(dir, ".git", "hooks", "pre-commit")
	if filepath.Clean(path) != want {
		t.Errorf("HookPath = %q, want %q", path, want)
	}
}

func TestHookPath_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	if _, err := HookPath(Options{Dir: t.TempDir()}, "pre-commit"); err == nil {
		t.Error("expected error outside a git repository")
	}
}
