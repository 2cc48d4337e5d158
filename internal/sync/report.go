package sync

import (
	"maps"
	"slices"
	"time"
)

// Outcome describes how a source ended a synchronization cycle
type Outcome string

// Source outcomes
const (
	// OutcomeUnchanged means the probe returned the last accepted version token
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeProbeFailed means the metadata probe failed
	OutcomeProbeFailed Outcome = "probe-failed"

	// OutcomeFetchFailed means the full fetch failed
	OutcomeFetchFailed Outcome = "fetch-failed"

	// OutcomeParseFailed means the document held no valid association
	OutcomeParseFailed Outcome = "parse-failed"

	// OutcomeNoVersion means the fetch carried no version token
	OutcomeNoVersion Outcome = "no-version"

	// OutcomeMerged means the fragment was accepted and merged
	OutcomeMerged Outcome = "merged"
)

// Error describes why a source contributed nothing to a cycle
type Error struct {
	Err     error
	Source  string
	Outcome Outcome
}

func (e *Error) Error() string {
	return string(e.Outcome) + ": " + e.Source + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SourceReport is the result of one source in a cycle
type SourceReport struct {
	Outcome Outcome `json:"outcome"`

	// Version is the token seen during the cycle, if any
	Version string `json:"version,omitempty"`

	// Added is the number of new associations contributed by the source
	Added int `json:"added"`

	// Error is the failure message for unsuccessful outcomes
	Error string `json:"error,omitempty"`
}

// CycleReport summarizes a synchronization cycle
type CycleReport struct {
	Force     bool                    `json:"force"`
	StartedAt time.Time               `json:"startedAt"`
	Duration  time.Duration           `json:"duration"`
	Sources   map[string]SourceReport `json:"sources"`

	// Added is the total number of new associations
	Added int `json:"added"`

	// Persisted reports whether the snapshot was written
	Persisted bool `json:"persisted"`

	// Error is the persistence failure message, if any
	Error string `json:"error,omitempty"`
}

func newCycleReport(force bool, startedAt time.Time) *CycleReport {
	return &CycleReport{
		Force:     force,
		StartedAt: startedAt,
		Sources:   make(map[string]SourceReport),
	}
}

func (r *CycleReport) clone() *CycleReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Sources = maps.Clone(r.Sources)
	return &c
}

// Failed returns the sorted names of sources that did not reach a successful outcome
func (r *CycleReport) Failed() []string {
	var failed []string
	for name, src := range r.Sources {
		if src.Outcome != OutcomeMerged && src.Outcome != OutcomeUnchanged {
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)
	return failed
}
