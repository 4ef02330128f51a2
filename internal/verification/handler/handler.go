package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"shc-verifier/internal/platform/middleware"
	"shc-verifier/internal/verification"
)

// Service is the engine entry point this handler delegates to.
type Service interface {
	VerifyCard(ctx context.Context, uid int64, qrdata string) verification.Outcome
}

// Handler is the thin HTTP layer over the verification service. Every
// response is HTTP 200 with the outcome in the body; callers must not infer
// the result from the transport status.
type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

// verifyRequest mirrors the scanning page's payload. The min=10 bound on
// qrdata repeats the scanner's spurious-read filter; anything shorter
// cannot be a card.
type verifyRequest struct {
	UID    int64  `json:"uid" validate:"required"`
	QRData string `json:"qrdata" validate:"required,min=10"`
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// VerifyCard handles POST /verify.
func (h *Handler) VerifyCard(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "malformed verify request",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeOutcome(w, verification.Outcome{Status: verification.StatusFailed, Message: "bad request"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeOutcome(w, verification.Outcome{Status: verification.StatusFailed, Message: "bad request"})
		return
	}

	writeOutcome(w, h.service.VerifyCard(r.Context(), req.UID, req.QRData))
}

func writeOutcome(w http.ResponseWriter, outcome verification.Outcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		// best-effort; the status line has already been sent
		return
	}
}
