package domain

// FetchStatus classifies the result of one symbol's pass through the pipeline.
type FetchStatus string

const (
	StatusOK          FetchStatus = "ok"
	StatusEmpty       FetchStatus = "empty"
	StatusRateLimited FetchStatus = "rate_limited"
	StatusParseError  FetchStatus = "parse_error"
	StatusFetchError  FetchStatus = "fetch_error"
)

// RunStatus classifies a whole pipeline invocation.
type RunStatus string

const (
	RunSuccess        RunStatus = "success"
	RunPartialFailure RunStatus = "partial_failure"
	RunTotalFailure   RunStatus = "total_failure"
)

// FetchOutcome is the per-symbol result of one pipeline pass.
type FetchOutcome struct {
	Symbol         string      `json:"symbol"`
	Status         FetchStatus `json:"status"`
	RecordsWritten int64       `json:"records_written"`
	Detail         string      `json:"detail,omitempty"`
}

// Succeeded reports whether the outcome counts toward run success. An empty
// series is not a failure: the provider legitimately had nothing new.
func (o FetchOutcome) Succeeded() bool {
	return o.Status == StatusOK || o.Status == StatusEmpty
}

// RunSummary aggregates all outcomes of one invocation.
type RunSummary struct {
	Status        RunStatus           `json:"status"`
	Outcomes      []FetchOutcome      `json:"outcomes"`
	CountByStatus map[FetchStatus]int `json:"count_by_status"`
	RecordsTotal  int64               `json:"records_total"`
}

// Summarize classifies a run: success when every symbol succeeded,
// total_failure when none did, partial_failure otherwise. A run over zero
// symbols is vacuously successful.
func Summarize(outcomes []FetchOutcome) RunSummary {
	summary := RunSummary{
		Outcomes:      outcomes,
		CountByStatus: make(map[FetchStatus]int, 5),
	}

	succeeded := 0
	for _, o := range outcomes {
		summary.CountByStatus[o.Status]++
		summary.RecordsTotal += o.RecordsWritten
		if o.Succeeded() {
			succeeded++
		}
	}

	switch {
	case succeeded == len(outcomes):
		summary.Status = RunSuccess
	case succeeded == 0:
		summary.Status = RunTotalFailure
	default:
		summary.Status = RunPartialFailure
	}

	return summary
}
