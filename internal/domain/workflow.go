package domain

import "time"

// Mode selects which ledger a trade runs against.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// Valid reports whether m is a recognized trading mode.
func (m Mode) Valid() bool {
	return m == ModePaper || m == ModeLive
}

// Workflow identifiers.
const (
	WorkflowDiscovery = "discovery"
	WorkflowMonitor   = "monitor"
)

// WorkflowState tracks one workflow's toggle and run history for one
// mode. States are created lazily on first toggle or run and never
// deleted.
type WorkflowState struct {
	WorkflowID string     `json:"workflow_id"`
	Mode       Mode       `json:"mode"`
	Enabled    bool       `json:"enabled"`
	RunCount   int64      `json:"run_count"`
	LastRunAt  *time.Time `json:"last_run_at"`
	LastError  string     `json:"last_error,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Key returns the composite identity of the state row.
func (s WorkflowState) Key() string {
	return s.WorkflowID + "_" + string(s.Mode)
}

// RunResult is the outcome of one pipeline invocation. It is returned
// to the caller and not persisted by the pipelines themselves.
type RunResult struct {
	WorkflowID       string    `json:"workflow_id"`
	Mode             Mode      `json:"mode"`
	Success          bool      `json:"success"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	MarketsAnalyzed  int       `json:"markets_analyzed"`
	Suggestions      int       `json:"suggestions"`
	OrdersPlaced     int       `json:"orders_placed"`
	PositionsChecked int       `json:"positions_checked"`
	SellsTriggered   int       `json:"sells_triggered"`
	StopLosses       int       `json:"stop_losses"`
	TakeProfits      int       `json:"take_profits"`
	Errors           []string  `json:"errors,omitempty"`
}

// FirstError returns the first recorded error string, or "" when the
// run recorded none.
func (r RunResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}
