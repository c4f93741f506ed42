// Package config loads and merges codecheck configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CODECHECK_SERVICE_URL, CODECHECK_RUN_MODEL, CODECHECK_FORMAT, etc.)
//  3. Config file ($XDG_CONFIG_HOME/codecheck/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [SetField] to update a single dotted key.
package config
