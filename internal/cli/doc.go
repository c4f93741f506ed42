// Package cli wires together the Cobra command tree for the codecheck binary.
//
// It defines the root command and all subcommands (format, review, scan,
// config, models, cache, hook, version), binds flags, reads configuration,
// drives the batch orchestrator, and returns deterministic exit codes for CI
// gating.
package cli
