package verification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shc-verifier/internal/audit"
	"shc-verifier/internal/identity"
	"shc-verifier/internal/immunization"
	"shc-verifier/internal/notify"
	"shc-verifier/internal/platform/middleware"
	"shc-verifier/internal/sentinel"
	"shc-verifier/internal/verification/metrics"
	"shc-verifier/internal/verification/tracer"
)

// User-facing outcome messages. Storage failures deliberately carry no
// driver detail; that stays in the structured log.
const (
	msgValidationPrefix = "health card failed validation"
	msgNotFound         = "could not find your registration"
	msgStorage          = "temporary problem accessing registration records"
	msgBadPatient       = "card does not carry a valid patient record"
	msgDOBMismatch      = "patient date of birth does not match participant DOB"
	msgVerified         = "signature validated"
	msgNameMismatch     = "patient name does not match participant name"
)

const notifyTimeout = 30 * time.Second

// AuditPublisher records terminal outcomes on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service sequences the verification stages for one request: signature
// verification, completeness evaluation, identity reconciliation, and the
// single persisted outcome. Stages run strictly in order; the first failure
// is terminal and nothing is retried within a request.
type Service struct {
	verifier CardVerifier
	store    Store
	notifier notify.Notifier
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	logger   *slog.Logger

	// notifyWG lets shutdown and tests wait for in-flight review
	// notifications.
	notifyWG sync.WaitGroup
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer. Without it spans are no-ops.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates the verification service. It panics on nil required
// dependencies - fail fast at startup. The auditor is required so every
// outcome lands on the audit trail; the notifier is required so the manual
// review path is always reachable.
func New(verifier CardVerifier, store Store, notifier notify.Notifier, auditor AuditPublisher, opts ...Option) *Service {
	if verifier == nil {
		panic("verification.New: card verifier is required")
	}
	if store == nil {
		panic("verification.New: registration store is required")
	}
	if notifier == nil {
		panic("verification.New: review notifier is required")
	}
	if auditor == nil {
		panic("verification.New: audit publisher is required")
	}
	s := &Service{
		verifier: verifier,
		store:    store,
		notifier: notifier,
		auditor:  auditor,
		tracer:   tracer.NewNoop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyCard runs one verification request end to end and returns its
// terminal outcome. Failures are always reported through the outcome, never
// as an error, so one bad request cannot fault the handler.
func (s *Service) VerifyCard(ctx context.Context, uid int64, qrdata string) Outcome {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyCard, tracer.Int64(tracer.AttrUID, uid))
	start := time.Now()
	outcome, candidate := s.process(ctx, uid, qrdata)
	span.SetAttributes(tracer.String(tracer.AttrStatus, string(outcome.Status)))
	s.observe(ctx, uid, outcome, candidate, time.Since(start))
	span.End(nil)
	return outcome
}

func (s *Service) process(ctx context.Context, uid int64, qrdata string) (Outcome, string) {
	result := s.verifier.Verify(ctx, qrdata)
	if !result.Verified {
		return failed(msgValidationPrefix + ": " + result.Reason), ""
	}

	if eval := immunization.Evaluate(result.Payload); !eval.Complete {
		return failed(eval.Reason), ""
	}

	patient, err := result.Payload.Patient()
	if err != nil {
		return failed(msgBadPatient), ""
	}

	participant, err := s.store.Lookup(ctx, uid)
	if err != nil {
		return s.storeFailure(ctx, uid, "lookup", err), ""
	}

	match, err := identity.Reconcile(
		identity.CardIdentity{
			GivenNames:  patient.GivenNames,
			FamilyName:  patient.FamilyName,
			DateOfBirth: patient.DateOfBirth,
		},
		identity.RegisteredIdentity{
			FullName:    participant.FullName,
			DateOfBirth: participant.DateOfBirth,
		},
	)
	if err != nil {
		// A DOB mismatch is a hard failure, not a review case.
		return failed(msgDOBMismatch), ""
	}

	if match.Matched {
		if err := s.store.MarkVerified(ctx, uid); err != nil {
			return s.storeFailure(ctx, uid, "mark verified", err), match.Candidate
		}
		return Outcome{Status: StatusVerified, Message: msgVerified}, match.Candidate
	}

	// Record the review state before answering so the manual path stays
	// reachable even if this response is lost in transit.
	if err := s.store.MarkNameMismatch(ctx, uid, match.Candidate); err != nil {
		return s.storeFailure(ctx, uid, "mark name mismatch", err), match.Candidate
	}
	s.sendReviewNotification(uid, match.Candidate, participant.FullName)
	return Outcome{Status: StatusNameMismatch, Message: msgNameMismatch}, match.Candidate
}

func failed(message string) Outcome {
	return Outcome{Status: StatusFailed, Message: message}
}

// storeFailure maps storage errors to outcomes exactly once: missing and
// ambiguous registrations get the not-found message, anything else gets a
// generic message with the detail logged.
func (s *Service) storeFailure(ctx context.Context, uid int64, op string, err error) Outcome {
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrAmbiguous) {
		return failed(msgNotFound)
	}
	s.logger.ErrorContext(ctx, "registration store error",
		"op", op,
		"uid", uid,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	return failed(msgStorage)
}

// sendReviewNotification delivers the review request off the request path.
// The mismatch row is already durably recorded; delivery latency or failure
// must not change the response.
func (s *Service) sendReviewNotification(uid int64, cardName, registeredName string) {
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyReview(ctx, uid, cardName, registeredName); err != nil {
			s.logger.Error("review notification failed",
				"uid", uid,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.NotificationFailures.Inc()
			}
		}
	}()
}

// Wait blocks until queued review notifications have finished. Called on
// shutdown and by tests.
func (s *Service) Wait() {
	s.notifyWG.Wait()
}

func (s *Service) observe(ctx context.Context, uid int64, outcome Outcome, candidate string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveRequest(string(outcome.Status), elapsed)
	}
	event := audit.Event{
		RequestID:     middleware.GetRequestID(ctx),
		UID:           uid,
		Action:        audit.ActionCardVerified,
		Status:        string(outcome.Status),
		Reason:        outcome.Message,
		CandidateName: candidate,
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"uid", uid,
			"error", err,
		)
		return
	}

	// A short span carrying the audit event so the trail correlates with the
	// request trace. The candidate name travels only as a hash.
	_, span := s.tracer.Start(ctx, tracer.SpanAuditPublish,
		tracer.String(tracer.AttrAction, string(event.Action)),
	)
	span.AddEvent(tracer.EventAuditEmitted,
		tracer.String(tracer.AttrAction, string(event.Action)),
		tracer.String(tracer.AttrCardName, tracer.HashName(candidate)),
	)
	span.End(nil)
}
