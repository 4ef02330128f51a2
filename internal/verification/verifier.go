package verification

import (
	"context"

	"shc-verifier/internal/directory"
	"shc-verifier/internal/shc"
)

// CardVerifier is the narrow verification primitive the coordinator
// consumes, so policy logic stays testable with canned results.
type CardVerifier interface {
	Verify(ctx context.Context, raw string) *shc.Result
}

// DirectoryVerifier pairs the JWS verifier with the live trust-directory
// provider. Each request captures one snapshot for its whole verification.
type DirectoryVerifier struct {
	Provider *directory.Provider
	Verifier *shc.Verifier
}

func (d *DirectoryVerifier) Verify(_ context.Context, raw string) *shc.Result {
	snapshot := d.Provider.Snapshot()
	if snapshot == nil {
		return &shc.Result{Reason: "trust directory is not available yet"}
	}
	return d.Verifier.Verify(raw, snapshot)
}
