package analysis

import (
	"path/filepath"
	"strings"
)

// formattable lists the extensions the format endpoints accept.
var formattable = map[string]bool{
	"java": true,
	"sql":  true,
	"jsp":  true,
	"py":   true,
	"js":   true,
	"html": true,
}

var languages = map[string]string{
	"py":   "python",
	"java": "java",
	"jsp":  "markup",
	"cs":   "csharp",
	"html": "html",
	"js":   "javascript",
	"ts":   "typescript",
	"cpp":  "cpp",
	"c":    "c",
	"sql":  "sql",
	"go":   "go",
}

// Ext returns the lower-case extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Formattable reports whether files with extension ext can be formatted.
func Formattable(ext string) bool {
	return formattable[strings.ToLower(ext)]
}

// LanguageFor maps an extension to the language label used for the
// gpt-format request and for code fences. Unknown extensions map to
// "plaintext".
func LanguageFor(ext string) string {
	if lang, ok := languages[strings.ToLower(ext)]; ok {
		return lang
	}
	return "plaintext"
}
