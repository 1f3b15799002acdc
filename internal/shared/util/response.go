package util

import (
	"encoding/json"
	"net/http"

	"vendor-tracking/internal/shared/apperrors"
)

func ResponseInJson(w http.ResponseWriter, statusCode int, object interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(object)
}

// ErrResponseInJson writes {"error": {code, message}} with the status mapped from err.
func ErrResponseInJson(w http.ResponseWriter, err error) {
	ResponseInJson(w, apperrors.CheckError(err), map[string]interface{}{
		"error": apperrors.FromError(err),
	})
}

func WriteJSONError(w http.ResponseWriter, code, message string, status int) {
	ResponseInJson(w, status, map[string]interface{}{
		"error": apperrors.Error{Code: code, Message: message},
	})
}
