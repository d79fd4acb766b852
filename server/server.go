// Package server is the JSON-RPC-over-HTTP gateway in front of the taxonomy
// engine and association resolver.
package server

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/taxonomy"
)

// Server routes RPC calls to the engine and resolver
type Server struct {
	engine   *taxonomy.Engine
	resolver *taxonomy.Resolver
	methods  map[string]handlerFunc

	service        string   // method prefix, e.g. "taxonomy_re_api"
	allowedOrigins []string // CORS origin prefixes

	limiter atomic.Pointer[rate.Limiter] // nil = unlimited; swapped on config reload
	metrics *metrics
	logger  *zap.SugaredLogger

	mu            sync.Mutex // guards httpServer and configWatcher
	httpServer    *http.Server
	configWatcher *am.ConfigWatcher
	closers       []io.Closer // backends opened by NewFromConfig
	state         atomic.Int32
	stopOnce      sync.Once
}

// Options configures a Server built around an existing engine.
type Options struct {
	Service        string
	AllowedOrigins []string

	// RequestsPerSecond of 0 disables rate limiting
	RequestsPerSecond float64
	Burst             int
}

// New creates a gateway over engine and resolver.
func New(engine *taxonomy.Engine, resolver *taxonomy.Resolver, opts Options, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Service == "" {
		opts.Service = am.DefaultService
	}

	s := &Server{
		engine:         engine,
		resolver:       resolver,
		methods:        buildMethods(engine, resolver),
		service:        opts.Service,
		allowedOrigins: opts.AllowedOrigins,
		metrics:        newMetrics(),
		logger:         log,
	}
	s.metrics.namespaces.Set(float64(len(engine.Registry().List())))
	s.SetRateLimit(opts.RequestsPerSecond, opts.Burst)
	return s
}

// SetRateLimit replaces the request budget. rps <= 0 disables limiting.
// Safe to call while serving.
func (s *Server) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		s.limiter.Store(nil)
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiter.Store(rate.NewLimiter(rate.Limit(rps), burst))
}

// Methods returns the fully qualified names of every served operation.
func (s *Server) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for op := range s.methods {
		names = append(names, s.service+"."+op)
	}
	return names
}

// Engine returns the engine the server dispatches to.
func (s *Server) Engine() *taxonomy.Engine {
	return s.engine
}

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
