package server

import (
	"net/http"

	"github.com/teranos/taxa/errors"
)

// errorMapping is how one error kind surfaces over HTTP.
type errorMapping struct {
	status int
	code   int // JSON-RPC style error code
}

var errorMappings = map[errors.Kind]errorMapping{
	errors.KindInvalidParams:        {http.StatusBadRequest, -32602},
	errors.KindUnknownMethod:        {http.StatusNotFound, -32601},
	errors.KindUnknownNamespace:     {http.StatusNotFound, -32004},
	errors.KindNotFound:             {http.StatusNotFound, -32001},
	errors.KindUnsupportedTransport: {http.StatusMethodNotAllowed, -32600},
	errors.KindRateLimited:          {http.StatusTooManyRequests, -32005},
	errors.KindInternal:             {http.StatusInternalServerError, -32603},
}

// mapError classifies err into its kind, HTTP status and error code.
func mapError(err error) (errors.Kind, errorMapping) {
	kind := errors.KindOf(err)
	m, ok := errorMappings[kind]
	if !ok {
		kind = errors.KindInternal
		m = errorMappings[errors.KindInternal]
	}
	return kind, m
}

// publicMessage is the message shown to callers. Internal errors are not
// described beyond their kind.
func publicMessage(kind errors.Kind, err error) string {
	if kind == errors.KindInternal {
		return "internal error"
	}
	return err.Error()
}
