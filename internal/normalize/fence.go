package normalize

import (
	"strings"
)

const fence = "```"

// StripFence removes a markdown code fence wrapping s. Only the first line
// (when it opens a fence) and the last line (when it closes one) are
// removed; fence-like text inside the body is left alone.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	if strings.HasPrefix(strings.TrimSpace(lines[0]), fence) {
		start = 1
	}
	if end > start && strings.TrimSpace(lines[end-1]) == fence {
		end--
	}
	return strings.TrimRight(strings.Join(lines[start:end], "\n"), "\r\n")
}

// LastFencedBlock returns the body of the last complete fenced block in
// markdown, or "" when there is none.
func LastFencedBlock(markdown string) string {
	var (
		inBlock bool
		cur     []string
		last    string
		found   bool
	)
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, fence) {
			if inBlock {
				last = strings.Join(cur, "\n")
				found = true
				cur = cur[:0]
				inBlock = false
				continue
			}
			inBlock = true
			continue
		}
		if inBlock {
			cur = append(cur, line)
		}
	}
	if !found {
		return ""
	}
	return last
}
