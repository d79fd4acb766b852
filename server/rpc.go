package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
	"github.com/teranos/taxa/taxonomy"
)

// rpcCall is a validated request envelope.
type rpcCall struct {
	Method    string // full "<service>.<operation>" name
	Operation string
	Params    json.RawMessage // the single argument object
	NS        string          // best effort, for logging and metrics
}

// HandleRPC serves the health check (GET) and RPC calls (POST).
func (s *Server) HandleRPC(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeResult(w, r, statusResult{Status: "ok"})
	case http.MethodPost:
		s.handleCall(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		err := errors.Wrapf(errors.ErrUnsupportedTransport, "HTTP %s is not supported", r.Method)
		kind := s.writeError(w, r, err)
		s.metrics.observe(unknownMethodLabel, kind, 0)
	}
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context(), s.logger)

	call, err := s.parseCall(r)
	var result *taxonomy.Result
	if err == nil {
		result, err = s.methods[call.Operation](r.Context(), call.Params)
	}
	elapsed := time.Since(start)

	method, label := "", unknownMethodLabel
	if call != nil {
		method = call.Method
		if call.Operation != "" {
			label = call.Operation
		}
	}
	if err != nil {
		kind := s.writeError(w, r, err)
		s.metrics.observe(label, kind, elapsed)
		log.Infow("RPC request failed",
			logger.FieldMethod, method,
			logger.FieldNamespace, nsOf(call),
			logger.FieldErrorKind, string(kind),
			logger.FieldError, err.Error(),
			logger.FieldDurationMS, elapsed.Milliseconds(),
		)
		return
	}

	s.writeResult(w, r, result)
	s.metrics.observe(label, "", elapsed)
	log.Infow("RPC request",
		logger.FieldMethod, method,
		logger.FieldNamespace, call.NS,
		logger.FieldCount, len(result.Results),
		logger.FieldDurationMS, elapsed.Milliseconds(),
	)
}

func nsOf(call *rpcCall) string {
	if call == nil {
		return ""
	}
	return call.NS
}

// parseCall validates the envelope and resolves the operation. On failure
// the returned call may still carry the method name for logging.
func (s *Server) parseCall(r *http.Request) (*rpcCall, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, errors.WrapInvalidParams(err, "read request body")
	}
	if len(body) > MaxBodyBytes {
		return nil, errors.NewInvalidParams("request body exceeds %d bytes", MaxBodyBytes)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.WrapInvalidParams(err, "request body must be a JSON object")
	}

	rawMethod, ok := envelope["method"]
	if !ok {
		return nil, errors.NewInvalidParams("'method' is required")
	}
	var method string
	if err := json.Unmarshal(rawMethod, &method); err != nil || isNull(rawMethod) {
		return nil, errors.NewInvalidParams("'method' must be a string")
	}
	call := &rpcCall{Method: method}

	service, op, found := strings.Cut(method, ".")
	if !found || service != s.service {
		return call, errors.NewUnknownMethod(method)
	}
	if _, ok := s.methods[op]; !ok {
		return call, errors.NewUnknownMethod(method)
	}
	call.Operation = op

	rawParams, ok := envelope["params"]
	if !ok {
		return call, errors.NewInvalidParams("'params' is required")
	}
	var params []json.RawMessage
	if err := json.Unmarshal(rawParams, &params); err != nil || isNull(rawParams) {
		return call, errors.NewInvalidParams("'params' must be a list holding one argument object")
	}
	switch len(params) {
	case 0:
		return call, errors.NewInvalidParams("'params' must not be empty")
	case 1:
	default:
		return call, errors.NewInvalidParams("'params' holds %d argument objects; exactly one is supported", len(params))
	}
	arg := bytes.TrimSpace(params[0])
	if len(arg) == 0 || arg[0] != '{' {
		return call, errors.NewInvalidParams("'params[0]' must be an object")
	}
	call.Params = arg

	var probe struct {
		NS string `json:"ns"`
	}
	_ = json.Unmarshal(arg, &probe) // type errors surface from the operation's own decode
	call.NS = probe.NS

	return call, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
