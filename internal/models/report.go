package models

import "time"

// RunReport summarizes one clear-then-rebuild run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Files      int            `json:"files"`
	Records    int            `json:"records"`
	Anomalies  int            `json:"anomalies"`
	Committed  bool           `json:"committed"`
	FileStats  []FileSummary  `json:"file_stats,omitempty"`
	PathErrors []PathError    `json:"path_errors,omitempty"`
	Kinds      map[string]int `json:"kinds,omitempty"` // node contexts encountered, with counts
}

// FileSummary is the per-file part of a RunReport.
type FileSummary struct {
	Path      string `json:"path"`
	SourceKey string `json:"source_key"`
	RootID    string `json:"root_id"`
	Records   int    `json:"records"`
	Anomalies int    `json:"anomalies"`
}

// PathError records an input path that could not be enumerated.
type PathError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// AddKinds merges per-file kind counts into the report.
func (r *RunReport) AddKinds(kinds map[string]int) {
	if len(kinds) == 0 {
		return
	}
	if r.Kinds == nil {
		r.Kinds = make(map[string]int, len(kinds))
	}
	for k, n := range kinds {
		r.Kinds[k] += n
	}
}
