package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/database"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20

// envelope wraps every response body.
type envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Message: message, Data: data}); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

// fail writes the error envelope. Errors outside the taxonomy are logged
// and reported as internal errors with the cause in details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := envelope{Error: true, Message: err.Error()}

	if apperr.IsInternal(err) {
		switch {
		case database.IsRetryable(err):
			status = http.StatusConflict
			body.Message = "the resource was modified concurrently, please retry"
		default:
			body.Message = "internal server error"
			body.Details = err.Error()
			h.logger.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("encode error response", zap.Error(err))
	}
}

// decode reads a JSON body of at most maxRequestBodySize bytes into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("malformed request body: %v", err)
	}
	return nil
}
