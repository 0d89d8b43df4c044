// Package web serves the mono-kit status page, its JSON twin, and a small
// control surface for queuing actuator commands.
package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/sweeney/mono-kit/internal/actuator"
	"github.com/sweeney/mono-kit/internal/mqtt"
	"github.com/sweeney/mono-kit/internal/status"
)

// maxCommandBytes bounds a POST /command body.
const maxCommandBytes = 4096

// Server serves kit status over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- actuator.Command
	patterns   func() []string
}

// Option configures a Server.
type Option func(*Server, *http.ServeMux)

// WithMetrics mounts h at /metrics. A nil handler mounts nothing.
func WithMetrics(h http.Handler) Option {
	return func(_ *Server, mux *http.ServeMux) {
		if h != nil {
			mux.Handle("/metrics", h)
		}
	}
}

// WithCommands enables POST /command. Accepted commands are queued on ch;
// the control loop applies them.
func WithCommands(ch chan<- actuator.Command) Option {
	return func(s *Server, mux *http.ServeMux) {
		s.commands = ch
		mux.HandleFunc("/command", s.handleCommand)
	}
}

// WithPatterns enables GET /patterns, listing the names from names.
func WithPatterns(names func() []string) Option {
	return func(s *Server, mux *http.ServeMux) {
		s.patterns = names
		mux.HandleFunc("/patterns", s.handlePatterns)
	}
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts ...Option) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	for _, opt := range opts {
		opt(s, mux)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops the server, waiting for requests in flight.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"patterns": s.patterns()})
}

// handleCommand takes the same JSON body as the MQTT command topic.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd, err := mqtt.ParseCommand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	select {
	case s.commands <- cmd:
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
	}
}
