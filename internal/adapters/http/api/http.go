// Package api exposes the presenter over HTTP: the board page, the viewer
// WebSocket, state, refresh and metrics.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Server wires HTTP routes for the presenter.
type Server struct {
	hub           *Hub
	healthHandler *HealthHandler
	stateHandler  *StateHandler
	assetBase     string
	assetDir      string
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAssets serves files from dir under the URL prefix base. Without it,
// asset URLs are expected to be served elsewhere.
func WithAssets(base, dir string) Option {
	return func(s *Server) {
		s.assetBase = strings.TrimRight(base, "/")
		s.assetDir = dir
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(hub *Hub, controller Controller, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		hub:           hub,
		healthHandler: NewHealthHandler(),
		stateHandler:  NewStateHandler(controller, stats, hub.Clients),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleState, "state")).Methods(http.MethodGet)
	r.HandleFunc("/refresh", MetricsMiddleware(s.stateHandler.HandleRefresh, "refresh")).Methods(http.MethodPost)
	r.HandleFunc("/ws", MetricsMiddleware(s.hub.ServeWS, "ws")).Methods(http.MethodGet)
	r.HandleFunc("/", MetricsMiddleware(handleBoard, "board")).Methods(http.MethodGet)

	if s.assetDir != "" && s.assetBase != "" && strings.HasPrefix(s.assetBase, "/") {
		prefix := s.assetBase + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(s.assetDir)))).Methods(http.MethodGet)
	}

	r.NotFoundHandler = MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	}, "not_found")
	r.MethodNotAllowedHandler = MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}, "method_not_allowed")
}

func handleBoard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, boardFS, "board.html")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
