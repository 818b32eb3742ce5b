package indexer

import (
	"errors"
	"time"
)

// Failure is one build job that did not contribute to the merged index.
type Failure struct {
	Source string
	URI    string
	Width  int
	Err    error
}

// SourceFailure is a source whose documents could not be collected.
type SourceFailure struct {
	Source string
	Err    error
}

// Report summarises an indexing run. A run with failures still produces a
// merged index and a snapshot; the report is how callers find out it is
// incomplete.
type Report struct {
	Documents      int
	Widths         []int
	Jobs           int
	Failures       []Failure
	SourceFailures []SourceFailure
	Duration       time.Duration
}

func (r Report) FailedJobs() int {
	return len(r.Failures)
}

// FailedDocuments counts distinct URIs with at least one failed job.
func (r Report) FailedDocuments() int {
	seen := make(map[string]struct{}, len(r.Failures))
	for _, f := range r.Failures {
		seen[f.Source+"\x00"+f.URI] = struct{}{}
	}
	return len(seen)
}

// Partial reports whether anything was skipped during the run.
func (r Report) Partial() bool {
	return len(r.Failures) > 0 || len(r.SourceFailures) > 0
}

// Err joins every failure into one error, or returns nil for a clean run.
func (r Report) Err() error {
	if !r.Partial() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures)+len(r.SourceFailures))
	for _, f := range r.SourceFailures {
		errs = append(errs, f.Err)
	}
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

func (r *Report) add(o Report) {
	r.Documents += o.Documents
	r.Jobs += o.Jobs
	r.Failures = append(r.Failures, o.Failures...)
	r.SourceFailures = append(r.SourceFailures, o.SourceFailures...)
}
