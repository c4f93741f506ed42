package gitfiles

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Source selects which files are collected from the repository.
type Source string

const (
	SourceChanged Source = "changed"
	SourceStaged  Source = "staged"
	SourceTracked Source = "tracked"
)

// Options controls file discovery. Paths are returned relative to Dir
// (the current directory when empty).
type Options struct {
	Dir     string
	Include []string
	Exclude []string
}

// Collect returns the files selected by source, filtered and sorted.
func Collect(source Source, opts Options) ([]string, error) {
	switch source {
	case SourceChanged:
		return Changed(opts)
	case SourceStaged:
		return Staged(opts)
	case SourceTracked:
		return Tracked(opts)
	default:
		return nil, fmt.Errorf("unknown file source: %s", source)
	}
}

// Root returns the top-level directory of the repository containing Dir.
func Root(opts Options) (string, error) {
	root, err := gitOutput(opts.Dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(root), nil
}

// HookPath returns the path of the named git hook, honoring core.hooksPath
// and linked worktrees.
func HookPath(opts Options, name string) (string, error) {
	out, err := gitOutput(opts.Dir, "rev-parse", "--git-path", "hooks/"+name)
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	path := strings.TrimSpace(out)
	if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}
	return path, nil
}

// Changed returns files modified in the working tree plus untracked files.
// Deleted files are left out.
func Changed(opts Options) ([]string, error) {
	modified, err := gitOutput(opts.Dir, "diff", "--relative", "--name-only", "--diff-filter=ACMR")
	if err != nil {
		return nil, fmt.Errorf("git diff: %w", err)
	}
	untracked, err := gitOutput(opts.Dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git ls-files --others: %w", err)
	}
	return filterFiles(opts, modified, untracked), nil
}

// Staged returns files added or modified in the index.
func Staged(opts Options) ([]string, error) {
	out, err := gitOutput(opts.Dir, "diff", "--cached", "--relative", "--name-only", "--diff-filter=ACMR")
	if err != nil {
		return nil, fmt.Errorf("git diff --cached: %w", err)
	}
	return filterFiles(opts, out), nil
}

// Tracked returns all git-tracked, non-binary files.
func Tracked(opts Options) ([]string, error) {
	out, err := gitOutput(opts.Dir, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []string
	for _, f := range filterFiles(opts, out) {
		if isBinary(opts.Dir, f) {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func filterFiles(opts Options, outputs ...string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, out := range outputs {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			if len(opts.Include) > 0 && !MatchesAny(line, opts.Include) {
				continue
			}
			if MatchesAny(line, opts.Exclude) {
				continue
			}
			seen[line] = true
			files = append(files, line)
		}
	}
	sort.Strings(files)
	return files
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// isBinary detects whether a file is binary using git diff --numstat.
// Binary files show "-\t-\t" for added/removed lines.
func isBinary(dir, path string) bool {
	out, _ := gitOutput(dir, "diff", "--no-index", "--numstat", "/dev/null", path)
	return strings.HasPrefix(strings.TrimSpace(out), "-\t-\t")
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
