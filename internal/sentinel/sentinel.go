package sentinel

import "errors"

// Sentinel dependency errors. Dependencies should return these (optionally
// wrapped) so the coordinator can translate them into outcomes exactly once.
var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("ambiguous record")
)
