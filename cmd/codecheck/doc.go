// Command codecheck submits source files to a code-analysis service and
// reports per-file results.
//
// Usage:
//
//	codecheck format [--engine rule|gpt] [--indent 2|4|8|tab] [files...]
//	codecheck review [--model name] [--summary-only] [files...]
//	codecheck scan   [--gpt-feedback] [--staged] [--fail-on-error]
//	codecheck config init|show|set <key> <value>
//	codecheck cache  show|clear
//	codecheck models list|doctor
//	codecheck hook   install|uninstall
//
// Exit codes: 0 success, 1 some files failed (with --fail-on-error),
// 2 usage error, 3 authentication error, 4 runtime error.
package main
