// Package fileset manages the ordered set of files submitted for analysis.
//
// Names are unique within a set. Per-file run configuration, display state
// and the latest attached outcome are kept in maps keyed by name, and every
// one of them is cleaned up when a file is removed.
package fileset
