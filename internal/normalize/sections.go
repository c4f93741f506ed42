package normalize

import (
	"regexp"
	"strings"

	"github.com/dshills/codecheck/internal/analysis"
)

type section int

const (
	secNone section = iota - 1
	secDescription
	secIssues
	secChanges
	secRefactored
)

// headerAliases lists the accepted titles for each section, in section
// order. Matching is case-insensitive after decoration is removed.
var headerAliases = [][]string{
	{"기능 설명", "description", "functional description"},
	{"개선이 필요한 부분", "issues to improve", "issues", "needs improvement"},
	{"주요 변경 요약", "summary of changes", "changes"},
	{"리팩토링 코드", "refactored code", "refactoring code"},
}

var (
	ordinalPrefix = regexp.MustCompile(`^\d+\s*[.)]\s*`)
	bareOrdinal   = regexp.MustCompile(`^\d+\s*[.)]?$`)
)

// Sections splits review markdown into its four named parts. Headers are
// recognized on their own lines and only in order; a header that never
// appears leaves its section empty.
func Sections(markdown string) analysis.Sections {
	var (
		parts   [4][]string
		current = secNone
		inFence bool
	)
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, fence) {
			inFence = !inFence
		}
		if !inFence {
			if next, ok := matchHeader(trimmed, current); ok {
				if current != secNone {
					parts[current] = dropTrailingOrdinal(parts[current])
				}
				current = next
				continue
			}
		}
		if current != secNone {
			parts[current] = append(parts[current], line)
		}
	}
	text := func(s section) string {
		return strings.TrimSpace(strings.Join(parts[s], "\n"))
	}
	return analysis.Sections{
		Description:    text(secDescription),
		Issues:         text(secIssues),
		Changes:        text(secChanges),
		RefactoredCode: text(secRefactored),
	}
}

// matchHeader reports whether line is the header of a section after current.
func matchHeader(line string, current section) (section, bool) {
	title := headerTitle(line)
	if title == "" {
		return secNone, false
	}
	for s := current + 1; s <= secRefactored; s++ {
		for _, alias := range headerAliases[s] {
			if titleHasAlias(title, alias) {
				return s, true
			}
		}
	}
	return secNone, false
}

// titleHasAlias reports whether title is alias, optionally followed by a
// note such as "(특히 보안적으로 문제가 있는지 점검)" or ": ...".
func titleHasAlias(title, alias string) bool {
	rest, ok := strings.CutPrefix(title, alias)
	if !ok {
		return false
	}
	rest = strings.TrimSpace(strings.TrimLeft(rest, "*_"))
	if rest == "" {
		return true
	}
	for _, lead := range []string{"(", "（", ":", "：", "-", "–"} {
		if strings.HasPrefix(rest, lead) {
			return true
		}
	}
	return false
}

func headerTitle(line string) string {
	s := strings.TrimLeft(line, "#")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_")
	s = strings.TrimSpace(s)
	s = ordinalPrefix.ReplaceAllString(s, "")
	s = strings.Trim(s, "*_")
	s = strings.TrimRight(s, ":：")
	return strings.ToLower(strings.TrimSpace(s))
}

func dropTrailingOrdinal(lines []string) []string {
	i := len(lines) - 1
	for i >= 0 && strings.TrimSpace(lines[i]) == "" {
		i--
	}
	if i >= 0 && bareOrdinal.MatchString(strings.Trim(strings.TrimSpace(lines[i]), "#*_ ")) {
		return lines[:i]
	}
	return lines
}
