package server

import (
	"time"
)

// ServerState represents the server lifecycle state
type ServerState int32

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// Server limits and timeouts
const (
	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	MaxBodyBytes      = 1 << 20 // RPC envelopes are small; anything larger is rejected
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Operation names, addressed as "<service>.<operation>".
const (
	OpGetTaxon               = "get_taxon"
	OpGetLineage             = "get_lineage"
	OpGetChildren            = "get_children"
	OpGetSiblings            = "get_siblings"
	OpSearchTaxa             = "search_taxa"
	OpSearchSpecies          = "search_species"
	OpGetAssociatedWSObjects = "get_associated_ws_objects"
	OpGetTaxonFromWSObj      = "get_taxon_from_ws_obj"
)

// rpcResponse is the success envelope. Result always holds exactly one element.
type rpcResponse struct {
	Result []interface{} `json:"result"`
}

// statusResult is the body of the health check.
type statusResult struct {
	Status string `json:"status"`
}

// rpcError describes a failed call.
type rpcError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// errorResponse is the failure envelope.
type errorResponse struct {
	Error     rpcError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

// Parameter shapes. Unknown keys are ignored; a known key with the wrong
// JSON type fails decoding.

type taxonParams struct {
	ID     string   `json:"id"`
	NS     string   `json:"ns"`
	Select []string `json:"select"`
}

type pageParams struct {
	Limit  *int `json:"limit"`
	Offset int  `json:"offset"`
}

type childrenParams struct {
	taxonParams
	pageParams
	SearchText string `json:"search_text"`
}

type siblingsParams struct {
	taxonParams
	pageParams
}

type searchParams struct {
	pageParams
	NS             string   `json:"ns"`
	SearchText     string   `json:"search_text"`
	Ranks          []string `json:"ranks"`
	IncludeStrains bool     `json:"include_strains"`
	Select         []string `json:"select"`
}

type associatedObjectsParams struct {
	ID string `json:"id"`
	NS string `json:"ns"`
	TS *int64 `json:"ts"`
}

type taxonFromObjectParams struct {
	ObjRef string   `json:"obj_ref"`
	NS     string   `json:"ns"`
	TS     *int64   `json:"ts"`
	Select []string `json:"select"`
}
