package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeResult writes the success envelope around a single result.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, result interface{}) {
	if err := writeJSON(w, http.StatusOK, rpcResponse{Result: []interface{}{result}}); err != nil {
		logger.FromContext(r.Context(), s.logger).Warnw("Failed to write response", logger.FieldError, err)
	}
}

// writeError writes the error envelope for err and returns its kind.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) errors.Kind {
	kind, m := mapError(err)
	requestID := logger.RequestIDFromContext(r.Context())

	if kind == errors.KindInternal {
		logger.FromContext(r.Context(), s.logger).Errorw("Internal error",
			logger.FieldError, err,
			"detail", fmt.Sprintf("%+v", err),
		)
	}

	body := errorResponse{
		Error: rpcError{
			Kind:    string(kind),
			Message: publicMessage(kind, err),
			Code:    m.code,
		},
		RequestID: requestID,
	}
	if werr := writeJSON(w, m.status, body); werr != nil {
		logger.FromContext(r.Context(), s.logger).Warnw("Failed to write error response", logger.FieldError, werr)
	}
	return kind
}
