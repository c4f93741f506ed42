// Package cache stores normalized analysis results keyed by fingerprint.
//
// [Memory] is the process-lifetime store: unbounded, no eviction, last write
// wins. [Disk] optionally persists entries between runs as msgpack files in
// $XDG_CACHE_HOME/codecheck (or the OS-appropriate equivalent), each named by
// a SHA-256 hash of the fingerprint and subject to a TTL. [Layered] combines
// the two behind the [Store] interface the batch orchestrator uses.
//
// Only successful results are ever stored; failures are retried on the next
// run.
package cache
