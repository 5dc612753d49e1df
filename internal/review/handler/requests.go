package handler

import (
	"strings"

	"cddflow/internal/assessment"
	dErrors "cddflow/pkg/domain-errors"
)

// RunReviewRequest is the HTTP request body for POST /reviews/run.
//
// The embedded assessment is passed through raw: schema and vocabulary
// validation is the assessment validator's job so the error taxonomy stays
// in one place. The handler only checks transport-level shape.
type RunReviewRequest struct {
	ReviewID   string          `json:"review_id"`
	Assessment *assessment.Raw `json:"assessment"`
}

// Validate implements httputil.Validatable.
func (r *RunReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ReviewID = strings.TrimSpace(r.ReviewID)
	if len(r.ReviewID) > 128 {
		return dErrors.New(dErrors.CodeValidation, "review_id must be at most 128 characters")
	}
	if r.Assessment == nil {
		return dErrors.New(dErrors.CodeValidation, "assessment is required")
	}
	return nil
}
