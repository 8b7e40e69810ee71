package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	domainErrors "github.com/auctionhouse/auction-marketplace-backend/internal/domain/errors"
)

// writeError maps any error onto the shared error envelope. Domain errors
// carry their own status code and machine-readable code; anything else is a
// 500 with the cause logged but never leaked.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{Error: ErrorDetail{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}}
		if appErr.Retryable {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, domainErrors.GetStatusCode(appErr), resp)
		return
	}

	logger.Error("unhandled request error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	}})
}

// writeValidationError reports request-shape failures
func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
