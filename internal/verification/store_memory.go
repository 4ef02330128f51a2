package verification

import (
	"context"
	"sync"

	"shc-verifier/internal/sentinel"
)

// AuthRecord is the verification state a memory store keeps per uid,
// mirroring the covidauth columns the engine writes.
type AuthRecord struct {
	Type    string
	Status  string
	Message *string
}

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[int64][]*Participant
	records  map[int64]*AuthRecord
	forceErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:    make(map[int64][]*Participant),
		records: make(map[int64]*AuthRecord),
	}
}

// Add registers a participant row. Adding the same uid twice models the
// ambiguous-record case.
func (s *MemoryStore) Add(p *Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.UID] = append(s.rows[p.UID], p)
	if _, ok := s.records[p.UID]; !ok {
		s.records[p.UID] = &AuthRecord{Type: p.Type}
	}
}

// FailWith makes every subsequent call return err, modeling a storage outage.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceErr = err
}

// Record returns the verification state for a uid, or nil.
func (s *MemoryStore) Record(uid int64) *AuthRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[uid]; ok {
		copied := *r
		return &copied
	}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, uid int64) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.forceErr != nil {
		return nil, s.forceErr
	}
	rows := s.rows[uid]
	switch len(rows) {
	case 0:
		return nil, sentinel.ErrNotFound
	case 1:
		copied := *rows[0]
		return &copied, nil
	default:
		return nil, sentinel.ErrAmbiguous
	}
}

func (s *MemoryStore) MarkVerified(_ context.Context, uid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forceErr != nil {
		return s.forceErr
	}
	record, ok := s.records[uid]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Type = ParticipantTypeVaccination
	record.Status = string(StatusVerified)
	record.Message = nil
	return nil
}

func (s *MemoryStore) MarkNameMismatch(_ context.Context, uid int64, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forceErr != nil {
		return s.forceErr
	}
	record, ok := s.records[uid]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Status = string(StatusNameMismatch)
	record.Message = &candidate
	return nil
}
