// Package batch runs a list of files through the analysis service.
//
// Files are processed strictly in order with at most one request in flight.
// Format modes skip extensions the formatter does not accept. Every other
// file is fingerprinted; a cache hit reuses the stored entry, a miss is sent
// to the service and normalized. A transport error, non-2xx reply, unreadable
// file or malformed body fails only that file and is never cached.
//
// The whole [analysis.Report] is published at once when the batch finishes.
// Starting a new batch cancels one still in progress with [ErrSuperseded].
package batch
