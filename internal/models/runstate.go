package models

import (
	"time"

	"github.com/google/uuid"
)

// Unit outcome statuses.
const (
	UnitStatusSuccess = "success"
	UnitStatusPartial = "partial"
	UnitStatusEmpty   = "empty"
	UnitStatusFailed  = "failed"
)

// UnitOutcome records how one work unit's collection ended.
type UnitOutcome struct {
	Keyword        string `json:"keyword"`
	Quarter        string `json:"quarter"`
	Status         string `json:"status"`
	PagesFetched   int    `json:"pages_fetched"`
	ItemsCollected int    `json:"items_collected"`
	ItemsRetained  int    `json:"items_retained"`
	Error          string `json:"error,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// RunState is the serializable record of one engine run. It is built up by
// the orchestrator, one outcome per unit, and persisted so callers can
// identify and re-run exactly the failed units.
type RunState struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Units      []UnitOutcome `json:"units"`
}

// NewRunState starts a run record for the given mode.
func NewRunState(mode string) *RunState {
	return &RunState{
		RunID:     uuid.New().String(),
		Mode:      mode,
		StartedAt: time.Now(),
		Units:     []UnitOutcome{},
	}
}

// Record appends one unit's outcome.
func (rs *RunState) Record(outcome UnitOutcome) {
	rs.Units = append(rs.Units, outcome)
}

// Finish stamps the run's end time.
func (rs *RunState) Finish() {
	rs.FinishedAt = time.Now()
}

// CountByStatus returns how many units ended with the given status.
func (rs *RunState) CountByStatus(status string) int {
	count := 0

	for _, u := range rs.Units {
		if u.Status == status {
			count++
		}
	}

	return count
}

// FailedUnits returns the outcomes that need a re-run (partial or failed).
func (rs *RunState) FailedUnits() []UnitOutcome {
	var failed []UnitOutcome

	for _, u := range rs.Units {
		if u.Status == UnitStatusPartial || u.Status == UnitStatusFailed {
			failed = append(failed, u)
		}
	}

	return failed
}

// TotalRetained sums the retained item counts across all units.
func (rs *RunState) TotalRetained() int {
	total := 0

	for _, u := range rs.Units {
		total += u.ItemsRetained
	}

	return total
}
