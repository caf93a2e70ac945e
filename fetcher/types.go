package fetcher

import (
	"github.com/s0up4200/splatctl/bugsplat"
)

// StopReason records why a target stopped requesting pages
type StopReason int

const (
	// StopComplete means every planned page was merged
	StopComplete StopReason = iota
	// StopBoundary means the boundary record was reached
	StopBoundary
	// StopExhausted means the listing returned a short or empty page
	StopExhausted
	// StopFetchError means a page request failed
	StopFetchError
	// StopCanceled means the context was canceled
	StopCanceled
)

func (s StopReason) String() string {
	switch s {
	case StopComplete:
		return "complete"
	case StopBoundary:
		return "boundary"
	case StopExhausted:
		return "exhausted"
	case StopFetchError:
		return "fetch_error"
	case StopCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// TargetResult holds the merged rows of one database. Only Database and
// Rows are serialized.
type TargetResult struct {
	Database string            `json:"Database"`
	Rows     []bugsplat.Record `json:"Rows"`

	Pages int        `json:"-"`
	Stop  StopReason `json:"-"`
	Err   error      `json:"-"`
}

// Failed reports whether the target ended on an error
func (r TargetResult) Failed() bool {
	return r.Stop == StopFetchError || r.Stop == StopCanceled
}

// ResultSet is the per-target results in selection order
type ResultSet []TargetResult

// TotalRecords returns the number of rows across all targets
func (rs ResultSet) TotalRecords() int {
	n := 0
	for _, r := range rs {
		n += len(r.Rows)
	}
	return n
}

// Failures returns the targets that ended on an error
func (rs ResultSet) Failures() []TargetResult {
	var failed []TargetResult
	for _, r := range rs {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}
