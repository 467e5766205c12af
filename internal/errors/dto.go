package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const safeDetailsPrefix = "__json__:"

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the response body for err
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    CodeFromErr(err),
			Display: DisplayMessage(err),
			Details: ReportableDetails(err),
		},
	}
}

// DisplayMessage returns the first non-empty hint of err
func DisplayMessage(err error) string {
	// GetAllHints is a post-order traversal
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

// ReportableDetails merges every WithReportableDetails payload of err
func ReportableDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, safeDetailsPrefix) {
				continue
			}
			var m map[string]any
			if err := json.Unmarshal([]byte(payload[len(safeDetailsPrefix):]), &m); err != nil {
				continue
			}
			for k, v := range m {
				details[k] = v
			}
		}
	}
	return details
}
