package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/transito-regional/licensing-api/internal/app/exams"
	"github.com/transito-regional/licensing-api/internal/app/licenses"
)

type errorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er errorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(er)
}

// writeAppError maps application-layer errors onto the error envelope.
// Unrecognized errors become opaque 500s.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if le := (*licenses.Error)(nil); errors.As(err, &le) {
		writeError(w, r, le.Status, le.Code, le.Message, le.Details)
		return
	}
	if ee := (*exams.Error)(nil); errors.As(err, &ee) {
		writeError(w, r, ee.Status, ee.Code, ee.Message, ee.Details)
		return
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
