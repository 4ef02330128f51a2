package notify

import (
	"context"
	"sync"
)

// Review is one recorded notification request.
type Review struct {
	UID            int64
	CardName       string
	RegisteredName string
}

// Recorder captures notifications in memory for tests.
type Recorder struct {
	mu    sync.Mutex
	calls []Review
	err   error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent notifications return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) NotifyReview(_ context.Context, uid int64, cardName, registeredName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, Review{UID: uid, CardName: cardName, RegisteredName: registeredName})
	return nil
}

// Calls returns a copy of the recorded notifications.
func (r *Recorder) Calls() []Review {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Review(nil), r.calls...)
}
