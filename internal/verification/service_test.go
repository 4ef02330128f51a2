package verification

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shc-verifier/internal/audit"
	"shc-verifier/internal/notify"
	"shc-verifier/internal/shc"
	"shc-verifier/internal/verification/tracer"
)

const testUID int64 = 4242

// fakeVerifier returns a canned result, keeping policy tests free of
// cryptographic fixtures.
type fakeVerifier struct {
	result *shc.Result
}

func (f *fakeVerifier) Verify(context.Context, string) *shc.Result {
	return f.result
}

func verifiedCard(given []string, family, dob string, cvx ...string) *shc.Result {
	entries := []shc.BundleEntry{{Resource: shc.Resource{
		ResourceType: "Patient",
		Name:         []shc.HumanName{{Family: family, Given: given}},
		BirthDate:    dob,
	}}}
	for _, code := range cvx {
		entries = append(entries, shc.BundleEntry{Resource: shc.Resource{
			ResourceType:       "Immunization",
			Status:             "completed",
			VaccineCode:        &shc.CodeableConcept{Coding: []shc.Coding{{System: "http://hl7.org/fhir/sid/cvx", Code: code}}},
			OccurrenceDateTime: "2021-04-01",
		}})
	}
	return &shc.Result{
		Verified: true,
		Payload: &shc.Payload{
			Issuer: "https://example.org/issuer",
			VC: shc.VC{
				Type: []string{"https://smarthealth.cards#health-card", shc.ImmunizationType},
				CredentialSubject: shc.CredentialSubject{
					FHIRBundle: shc.FHIRBundle{ResourceType: "Bundle", Entry: entries},
				},
			},
		},
	}
}

type fixture struct {
	service  *Service
	store    *MemoryStore
	notifier *notify.Recorder
	sink     *audit.InMemoryStore
}

func newFixture(t *testing.T, result *shc.Result) *fixture {
	t.Helper()
	store := NewMemoryStore()
	notifier := notify.NewRecorder()
	sink := audit.NewInMemoryStore()
	service := New(
		&fakeVerifier{result: result},
		store,
		notifier,
		audit.NewPublisher(sink),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	return &fixture{service: service, store: store, notifier: notifier, sink: sink}
}

func (f *fixture) addParticipant(fullName, dob string) {
	date, _ := time.Parse("2006-01-02", dob)
	f.store.Add(&Participant{UID: testUID, FullName: fullName, DateOfBirth: date})
}

func TestVerifyCardRejectsInvalidCard(t *testing.T) {
	f := newFixture(t, &shc.Result{Reason: "signature is invalid"})
	f.addParticipant("John Smith", "1980-05-17")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "health card failed validation: signature is invalid", outcome.Message)
	// No identity-store write happens on a failed verification.
	record := f.store.Record(testUID)
	assert.Empty(t, record.Status)
	assert.Empty(t, f.notifier.Calls())
}

func TestVerifyCardRejectsIncompleteSeries(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "208"))
	f.addParticipant("John Smith", "1980-05-17")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "unable to verify a full primary series immunization", outcome.Message)
	assert.Empty(t, f.store.Record(testUID).Status)
}

func TestVerifyCardRejectsNonImmunizationRecord(t *testing.T) {
	result := verifiedCard([]string{"John"}, "Smith", "1980-05-17", "208", "208")
	result.Payload.VC.Type = []string{"https://smarthealth.cards#laboratory"}
	f := newFixture(t, result)
	f.addParticipant("John Smith", "1980-05-17")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "card is not an immunization record", outcome.Message)
}

func TestVerifyCardUnknownRegistration(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "could not find your registration", outcome.Message)
}

func TestVerifyCardAmbiguousRegistration(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))
	f.addParticipant("John Smith", "1980-05-17")
	f.addParticipant("John Smith", "1980-05-17")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "could not find your registration", outcome.Message)
}

func TestVerifyCardStorageErrorStaysGeneric(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))
	f.addParticipant("John Smith", "1980-05-17")
	f.store.FailWith(errors.New("pq: connection refused on 10.0.0.7"))

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	// Driver detail must not cross the trust boundary.
	assert.Equal(t, "temporary problem accessing registration records", outcome.Message)
}

func TestVerifyCardDOBMismatchFails(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))
	f.addParticipant("John Smith", "1980-05-18")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "patient date of birth does not match participant DOB", outcome.Message)
	assert.Empty(t, f.store.Record(testUID).Status)
	assert.Empty(t, f.notifier.Calls())
}

func TestVerifyCardMatchMarksVerified(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John", "Robert"}, "Smith", "1980-05-17", "207", "207"))
	f.addParticipant("John Smith", "1980-05-17")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, StatusVerified, outcome.Status)
	assert.Equal(t, "signature validated", outcome.Message)

	record := f.store.Record(testUID)
	require.NotNil(t, record)
	assert.Equal(t, ParticipantTypeVaccination, record.Type)
	assert.Equal(t, "verified", record.Status)
	assert.Nil(t, record.Message)
	assert.Empty(t, f.notifier.Calls())
}

func TestVerifyCardMismatchTriggersReview(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"Ana", "Maria"}, "Garcia", "1980-05-17", "212"))
	f.addParticipant("Ana Maria Lopez", "1980-05-17")

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")
	f.service.Wait()

	assert.Equal(t, StatusNameMismatch, outcome.Status)
	assert.Equal(t, "patient name does not match participant name", outcome.Message)

	record := f.store.Record(testUID)
	require.NotNil(t, record)
	assert.Equal(t, "name-mismatch", record.Status)
	require.NotNil(t, record.Message)
	assert.Equal(t, "Ana Garcia", *record.Message)

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testUID, calls[0].UID)
	assert.Equal(t, "Ana Garcia", calls[0].CardName)
	assert.Equal(t, "Ana Maria Lopez", calls[0].RegisteredName)
}

func TestVerifyCardNotificationFailureKeepsOutcome(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"Ana", "Maria"}, "Garcia", "1980-05-17", "212"))
	f.addParticipant("Ana Maria Lopez", "1980-05-17")
	f.notifier.FailWith(errors.New("smtp unreachable"))

	outcome := f.service.VerifyCard(context.Background(), testUID, "shc:/00")
	f.service.Wait()

	// The mismatch was durably recorded before the send was attempted.
	assert.Equal(t, StatusNameMismatch, outcome.Status)
	assert.Equal(t, "name-mismatch", f.store.Record(testUID).Status)
}

func TestVerifyCardIsIdempotent(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))
	f.addParticipant("John Smith", "1980-05-17")

	first := f.service.VerifyCard(context.Background(), testUID, "shc:/00")
	second := f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, first, second)
	record := f.store.Record(testUID)
	assert.Equal(t, "verified", record.Status)
	assert.Equal(t, ParticipantTypeVaccination, record.Type)
}

// recordingTracer captures span names and events for assertions.
type recordingTracer struct {
	spans  []string
	events []string
}

func (r *recordingTracer) Start(ctx context.Context, name string, _ ...tracer.Attribute) (context.Context, tracer.Span) {
	r.spans = append(r.spans, name)
	return ctx, &recordingSpan{tracer: r}
}

type recordingSpan struct {
	tracer *recordingTracer
}

func (s *recordingSpan) End(error)                        {}
func (s *recordingSpan) SetAttributes(...tracer.Attribute) {}
func (s *recordingSpan) AddEvent(name string, _ ...tracer.Attribute) {
	s.tracer.events = append(s.tracer.events, name)
}

func TestVerifyCardTracesRequestAndAudit(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))
	f.addParticipant("John Smith", "1980-05-17")

	rec := &recordingTracer{}
	service := New(
		&fakeVerifier{result: verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212")},
		f.store,
		f.notifier,
		audit.NewPublisher(f.sink),
		WithTracer(rec),
		WithLogger(slog.New(slog.DiscardHandler)),
	)

	service.VerifyCard(context.Background(), testUID, "shc:/00")

	assert.Equal(t, []string{tracer.SpanVerifyCard, tracer.SpanAuditPublish}, rec.spans)
	assert.Equal(t, []string{tracer.EventAuditEmitted}, rec.events)
}

func TestVerifyCardEmitsAuditEvents(t *testing.T) {
	f := newFixture(t, verifiedCard([]string{"John"}, "Smith", "1980-05-17", "212"))
	f.addParticipant("John Smith", "1980-05-17")

	f.service.VerifyCard(context.Background(), testUID, "shc:/00")

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCardVerified, events[0].Action)
	assert.Equal(t, testUID, events[0].UID)
	assert.Equal(t, string(StatusVerified), events[0].Status)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}
