// Package output renders batch reports for display or machine consumption.
//
// Four formats are supported:
//   - text     human-readable terminal output with a summary table (default)
//   - json     full structured JSON report
//   - markdown one collapsible section per file
//   - yaml     full structured YAML report
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*analysis.Report]. [WriteArchive]
// exports successful results as a zip archive.
package output
