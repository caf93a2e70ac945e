// Package fetcher collects bounded, ordered result sets from BugSplat
// listing endpoints.
//
// A listing is read newest-first, one page at a time, while new records keep
// arriving at the head. Each page after the first therefore may repeat rows
// already collected; the merge looks back over the last OverlapWindow rows for
// the first row of the new page and drops the repeated tail before appending.
//
// Targets are processed strictly one after another. A failing page ends its
// own target and keeps what was merged so far; the remaining targets still run.
package fetcher
