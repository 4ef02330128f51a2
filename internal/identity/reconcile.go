// Package identity reconciles the identity embedded in a card against a
// registered participant record using tiered, deterministic name matching.
package identity

import (
	"errors"
	"strings"
	"time"
)

// ErrDOBMismatch is returned when the dates of birth differ. The date check
// is a hard precondition; no name strategy runs after it fails.
var ErrDOBMismatch = errors.New("date of birth does not match")

// CardIdentity is the patient identity extracted from a verified card.
// GivenNames may be empty for mononymic patients.
type CardIdentity struct {
	GivenNames  []string
	FamilyName  string
	DateOfBirth time.Time
}

// RegisteredIdentity is the participant record's view of the same person.
// FullName is a single free-text field; given and family names are not
// separately structured.
type RegisteredIdentity struct {
	FullName    string
	DateOfBirth time.Time
}

// Result records the winning candidate on a match, or the last-attempted
// candidate otherwise, for the audit message and review notification.
type Result struct {
	Matched   bool
	Candidate string
}

// Reconcile compares the card identity against the registered record.
//
// Tier A tries progressively longer given-name prefixes, so a registered
// name that abbreviates the card's given names matches at the shorter
// prefix; the first equal candidate wins. The converse is deliberate
// asymmetry: when the registry carries more name components than the card,
// Tier A cannot match and the comparison falls through to Tier B, which
// reduces the registered name to its first and last tokens.
func Reconcile(card CardIdentity, registered RegisteredIdentity) (Result, error) {
	if !sameDate(card.DateOfBirth, registered.DateOfBirth) {
		return Result{}, ErrDOBMismatch
	}

	var candidate string
	for i := 0; i <= len(card.GivenNames); i++ {
		candidate = composeName(card.GivenNames[:i], card.FamilyName)
		if equalFolded(candidate, registered.FullName) {
			return Result{Matched: true, Candidate: candidate}, nil
		}
	}

	var first []string
	if len(card.GivenNames) > 0 {
		first = card.GivenNames[:1]
	}
	candidate = composeName(first, card.FamilyName)
	if equalFolded(candidate, reduceName(registered.FullName)) {
		return Result{Matched: true, Candidate: candidate}, nil
	}

	return Result{Candidate: candidate}, nil
}

// composeName joins given names and the family name with single spaces,
// degrading to the bare family name for mononymics.
func composeName(given []string, family string) string {
	name := strings.Join(given, " ")
	if name != "" {
		name += " "
	}
	return name + family
}

// reduceName keeps only the first and last whitespace-separated tokens. A
// single-token name reduces to itself.
func reduceName(full string) string {
	parts := strings.Fields(full)
	if len(parts) <= 1 {
		return full
	}
	return parts[0] + " " + parts[len(parts)-1]
}

// sameDate compares two moments as date-only values in UTC.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
