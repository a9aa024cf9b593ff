package service

import (
	"strings"

	"handover/internal/models"
)

// FieldViolation names one invalid payload field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one message per violated field, in a fixed field
// order, so a caller can render all problems at once.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

// ValidateSubmission checks the raw payload and returns its normalized form.
// Pure function: no I/O, deterministic, identical violation ordering on every
// call.
func ValidateSubmission(payload models.SubmissionPayload) (models.SubmissionPayload, *ValidationError) {
	normalized := models.SubmissionPayload{
		ItemID:           strings.TrimSpace(payload.ItemID),
		RequesterName:    strings.TrimSpace(payload.RequesterName),
		RequesterAddress: strings.TrimSpace(payload.RequesterAddress),
		RequesterPhone:   strings.TrimSpace(payload.RequesterPhone),
	}

	var violations []FieldViolation
	if normalized.ItemID == "" {
		violations = append(violations, FieldViolation{
			Field:   "item_id",
			Message: "item_id is required",
		})
	}
	if normalized.RequesterName == "" {
		violations = append(violations, FieldViolation{
			Field:   "requester_name",
			Message: "requester name is required",
		})
	}
	if normalized.RequesterAddress == "" {
		violations = append(violations, FieldViolation{
			Field:   "requester_address",
			Message: "requester address is required",
		})
	}
	if normalized.RequesterPhone == "" {
		violations = append(violations, FieldViolation{
			Field:   "requester_phone",
			Message: "requester phone is required",
		})
	}

	if len(violations) > 0 {
		return normalized, &ValidationError{Violations: violations}
	}
	return normalized, nil
}
