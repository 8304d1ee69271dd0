// Package api exposes oracles over HTTP and streams their events over WebSocket.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/observability"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
	"weighted-oracle/internal/storage"
)

// Default write limits per signer.
const (
	DefaultWriteRate  = 10
	DefaultWriteBurst = 20
)

// Options configures a Server.
type Options struct {
	Registry       *registry.Registry
	Hub            *Hub                  // optional, /ws is not routed when nil
	Events         storage.EventStore    // optional, backs /oracles/{address}/events
	Nonces         *signing.NonceTracker // defaults to a fresh tracker
	WriteRate      float64               // signed requests per second per signer
	WriteBurst     int
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// Server serves the oracle HTTP API.
type Server struct {
	registry *registry.Registry
	hub      *Hub
	events   storage.EventStore
	nonces   *signing.NonceTracker
	limiter  *RateLimiter
	origins  []string
	logger   zerolog.Logger
	started  time.Time
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Nonces == nil {
		opts.Nonces = signing.NewNonceTracker()
	}
	if opts.WriteRate == 0 {
		opts.WriteRate = DefaultWriteRate
	}
	if opts.WriteBurst == 0 {
		opts.WriteBurst = DefaultWriteBurst
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		registry: opts.Registry,
		hub:      opts.Hub,
		events:   opts.Events,
		nonces:   opts.Nonces,
		limiter:  NewRateLimiter(opts.WriteRate, opts.WriteBurst),
		origins:  opts.AllowedOrigins,
		logger:   opts.Logger,
		started:  time.Now(),
	}
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)

	if s.hub != nil {
		router.Path("/ws").Methods(http.MethodGet).HandlerFunc(s.hub.ServeWS)
	}
	router.Path("/metrics").Methods(http.MethodGet).Handler(observability.Handler())

	sub := router.PathPrefix("/").Subrouter()
	sub.Use(handlers.CompressHandler)

	sub.Path("/health").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.health))
	sub.Path("/status").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.status))

	sub.Path("/tokens").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.listTokens))
	sub.Path("/tokens/{token}/balances/{owner}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.balance))
	sub.Path("/tokens/{token}/approve").Methods(http.MethodPost).HandlerFunc(WrapHandlerFunc(s.signed(s.approve)))

	sub.Path("/oracles").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.listOracles))
	sub.Path("/oracles").Methods(http.MethodPost).HandlerFunc(WrapHandlerFunc(s.signed(s.createOracle)))
	sub.Path("/oracles/{address}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.showOracle))
	sub.Path("/oracles/{address}/history").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.history))
	sub.Path("/oracles/{address}/events").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.oracleEvents))
	sub.Path("/oracles/{address}/submissions/{index:[0-9]+}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.submission))
	sub.Path("/oracles/{address}/participants/{participant}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.participant))
	sub.Path("/oracles/{address}/votes/{target}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.votes))
	sub.Path("/oracles/{address}/{op}").Methods(http.MethodPost).HandlerFunc(WrapHandlerFunc(s.signed(s.operate)))

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", signing.HeaderSigner, signing.HeaderNonce, signing.HeaderSignature}),
	)(router))
}

// recoveryLogger adapts zerolog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Str("panic", fmt.Sprint(v...)).Msg("recovered from panic")
}
