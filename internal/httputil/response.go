package httputil

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/redmonkez12/tours-api/internal/apperror"
	"github.com/redmonkez12/tours-api/internal/logging"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`

	// Development mode only.
	Error string `json:"error,omitempty"`
	Stack string `json:"stack,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondSuccess wraps data in a success envelope.
func RespondSuccess(w http.ResponseWriter, data any, statusCode int) {
	RespondJSON(w, Envelope{Status: StatusSuccess, Data: data}, statusCode)
}

// RespondList wraps a list in a success envelope with a result count.
func RespondList(w http.ResponseWriter, data any, results int) {
	RespondJSON(w, Envelope{Status: StatusSuccess, Results: &results, Data: data}, http.StatusOK)
}

// RespondMessage sends a success envelope carrying only a message.
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, Envelope{Status: StatusSuccess, Message: message}, statusCode)
}

// RespondNoContent sends 204 with no body.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondError is the single place failures are written to clients.
// Operational errors keep their status and message; anything else becomes a
// generic 500. In development the cause and stack are included.
func RespondError(w http.ResponseWriter, r *http.Request, err error, development bool) {
	appErr := apperror.From(err)
	status := appErr.StatusCode()

	logger := logging.GetLoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", appErr.Code, "error", appErr.Error())
	}

	env := Envelope{
		Status:  StatusFail,
		Message: appErr.Message,
		Code:    appErr.Code,
	}
	if status >= http.StatusInternalServerError {
		env.Status = StatusError
	}

	if development {
		env.Error = appErr.Error()
		if len(appErr.Stack) > 0 {
			env.Stack = string(appErr.Stack)
		}
	}

	RespondJSON(w, env, status)
}
