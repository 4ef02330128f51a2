package verification

import "context"

// Store is the read/update contract against the registration database. The
// engine reads one row per request and writes it at most once, only after
// every prior stage has succeeded.
type Store interface {
	// Lookup returns sentinel.ErrNotFound when no registration exists for
	// the uid and sentinel.ErrAmbiguous when more than one row matches.
	Lookup(ctx context.Context, uid int64) (*Participant, error)

	// MarkVerified records a fully verified card: the participant type
	// becomes "vaccination", status "verified", and any pending review
	// message is cleared.
	MarkVerified(ctx context.Context, uid int64) error

	// MarkNameMismatch places the registration into the manual-review
	// state, recording the candidate name that failed to match.
	MarkNameMismatch(ctx context.Context, uid int64, candidate string) error
}
