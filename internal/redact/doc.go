// Package redact masks sensitive values in analysis results before they are
// displayed or exported.
//
// A [Masker] is built from a list of key names (password, api_key, secret,
// ...). Values assigned to those keys, in either `key = value` or JSON
// `"key": "value"` form, are replaced with **** while the key is kept.
// Email addresses and phone numbers are partially masked, and well-known
// token shapes (AWS access key IDs, JWTs, bearer tokens, private key blocks,
// GitHub, Slack, Anthropic and OpenAI keys) become [REDACTED].
package redact
