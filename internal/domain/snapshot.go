package domain

// Stats are session counters.
type Stats struct {
	Detected    int64 `json:"detected"`
	Dropped     int64 `json:"dropped"` // slots full at arrival
	Rejected    int64 `json:"rejected"`
	Executed    int64 `json:"executed"`
	Wins        int64 `json:"wins"`
	TakeProfits int64 `json:"takeProfits"`
	StopLosses  int64 `json:"stopLosses"`
	Timeouts    int64 `json:"timeouts"`
	Failed      int64 `json:"failed"`
}

// StateSnapshot is the persisted session state consumed by operator tooling.
type StateSnapshot struct {
	SessionID       string     `json:"sessionId"`
	Running         bool       `json:"running"`
	DryRun          bool       `json:"dryRun"`
	Stats           Stats      `json:"stats"`
	ActivePositions []Position `json:"activePositions"`
	UpdatedAt       int64      `json:"updatedAt"` // Unix ms
}
