// Package notify delivers manual-review requests when a valid card's name
// does not match the registered participant. Delivery is best effort: the
// mismatch is already durably recorded before any notification is sent.
package notify

import "context"

// Notifier requests a manual review of a name mismatch.
type Notifier interface {
	NotifyReview(ctx context.Context, uid int64, cardName, registeredName string) error
}
