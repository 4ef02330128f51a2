package audit

import "time"

// Action names the audited operation.
type Action string

const (
	// ActionCardVerified is emitted once per verification request with the
	// terminal outcome.
	ActionCardVerified Action = "card_verified"
)

// Event captures one terminal verification outcome for the audit trail.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
	UID           int64     `json:"uid"`
	Action        Action    `json:"action"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	CandidateName string    `json:"candidate_name,omitempty"`
}
