package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cddflow/internal/assessment"
	"cddflow/internal/dispatch"
	"cddflow/internal/ledger"
	dErrors "cddflow/pkg/domain-errors"
	"cddflow/pkg/platform/httputil"
	"cddflow/pkg/requestcontext"
)

// Service defines the interface for review operations.
type Service interface {
	Run(ctx context.Context, reviewID string, raw assessment.Raw) (*dispatch.Outcome, error)
	CaseLookup(ctx context.Context, customerID, reviewID string) (*ledger.CaseRecord, error)
}

// Handler wires review endpoints to the review service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a review handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts review endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reviews/run", h.HandleRun)
	r.Get("/reviews/{customerID}/{reviewID}/case", h.HandleCaseLookup)
}

// HandleRun handles POST /reviews/run requests.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RunReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.Run(ctx, req.ReviewID, *req.Assessment)
	if err != nil {
		h.logger.ErrorContext(ctx, "review run failed",
			"request_id", requestID,
			"review_id", req.ReviewID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "review run handled",
		"request_id", requestID,
		"review_id", outcome.ReviewID,
		"decision", outcome.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// HandleCaseLookup handles GET /reviews/{customerID}/{reviewID}/case.
func (h *Handler) HandleCaseLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID := chi.URLParam(r, "customerID")
	reviewID := chi.URLParam(r, "reviewID")
	if customerID == "" || reviewID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "customer and review identifiers are required"))
		return
	}

	record, err := h.service.CaseLookup(ctx, customerID, reviewID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCaseRecord(record))
}
