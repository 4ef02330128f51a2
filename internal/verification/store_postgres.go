package verification

import (
	"context"
	"database/sql"
	"fmt"

	"shc-verifier/internal/sentinel"
)

// PostgresStore reads and updates registrations in PostgreSQL. The schema
// mirrors the ticketing system: users holds the identity, covidauth the
// per-participant verification state.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Lookup(ctx context.Context, uid int64) (*Participant, error) {
	query := `
		SELECT users.fullname, users.dob, covidauth.type
		FROM users
		JOIN covidauth ON users.id = covidauth.participant
		WHERE users.id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("lookup registration: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var found []*Participant
	for rows.Next() {
		p := &Participant{UID: uid}
		var ptype sql.NullString
		if err := rows.Scan(&p.FullName, &p.DateOfBirth, &ptype); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		p.Type = ptype.String
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup registration: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, sentinel.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, sentinel.ErrAmbiguous
	}
}

func (s *PostgresStore) MarkVerified(ctx context.Context, uid int64) error {
	query := `
		UPDATE covidauth
		SET type = 'vaccination', status = 'verified', message = NULL
		WHERE participant = $1
	`
	return s.exec(ctx, "mark verified", query, uid)
}

func (s *PostgresStore) MarkNameMismatch(ctx context.Context, uid int64, candidate string) error {
	query := `
		UPDATE covidauth
		SET status = 'name-mismatch', message = $2
		WHERE participant = $1
	`
	return s.exec(ctx, "mark name mismatch", query, uid, candidate)
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
