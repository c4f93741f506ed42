// Package gitfiles discovers files to submit from a git repository.
//
// Three sources are supported: changed (working tree modifications plus
// untracked files), staged (the index) and tracked (every non-binary file
// under version control). Results are filtered by include/exclude glob
// patterns and returned sorted.
package gitfiles
