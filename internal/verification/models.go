package verification

import "time"

// Status is the tri-state outcome of one verification request.
type Status string

const (
	StatusVerified     Status = "verified"
	StatusNameMismatch Status = "name-mismatch"
	StatusFailed       Status = "failed"
)

// Outcome is the engine's sole returned artifact: exactly one per request,
// carried entirely in the response body.
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Participant is the registered identity record for one ticket holder, as
// read from the registration store.
type Participant struct {
	UID         int64
	FullName    string
	DateOfBirth time.Time
	Type        string
}

// ParticipantTypeVaccination marks a registration admitted on a verified
// vaccination card.
const ParticipantTypeVaccination = "vaccination"
