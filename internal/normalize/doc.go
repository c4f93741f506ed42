// Package normalize maps raw analysis-service responses onto the result
// model in package analysis.
//
// Each endpoint has its own shape: the rule formatter returns JSON with a
// single formatted string, the GPT formatter returns text that may be wrapped
// in a code fence, the reviewer returns chunked markdown, and the scanner
// returns either findings grouped by language or a single result string.
// Bodies that are nearly JSON are repaired before decoding. A body that still
// cannot be used yields a diagnostic text entry together with a [*ShapeError];
// normalization never panics.
package normalize
