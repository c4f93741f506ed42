// Package analysis defines the core model shared by the file set, the
// fingerprint cache, the normalizer and the batch orchestrator.
//
// A [RunConfig] describes how one file is submitted to the analysis service.
// [Fingerprint] derives the cache key from the file identity and every
// configuration dimension that can change the service's output. Results are
// carried as an [Entry], a tagged variant with three kinds: opaque text,
// findings grouped by language, and chunked review records. Each file in a
// batch produces exactly one [Outcome]; a [Report] collects the outcomes of
// one batch in file order.
package analysis
