// Package diag provides a localhost-only HTTP diagnostic endpoint for
// the running daemon: current backend, last chord/keycode seen, and
// modifier/layer state, for operators debugging a headless device
// without attaching a debugger.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Status is a snapshot of pipeline state, filled in by the caller on
// each request via the StatusFunc.
type Status struct {
	Backend       string `json:"backend"`
	Layer         string `json:"layer"`
	Modifier      string `json:"modifier"`
	ModifierState string `json:"modifier_state"`
	LastChord     string `json:"last_chord"`
	LastBase      string `json:"last_base"`
	LastKeycode   string `json:"last_keycode"`
	EventCount    uint64 `json:"event_count"`
	ErrorCount    uint64 `json:"error_count"`
	LastError     string `json:"last_error,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StatusFunc produces the current Status on demand. The pipeline
// supplies this; diag never reaches into pipeline state directly.
type StatusFunc func() Status

// Server serves /status on a localhost-only listener.
type Server struct {
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	statusFn   StatusFunc
}

// New creates a diagnostic server that answers /status with the
// result of statusFn.
func New(statusFn StatusFunc) *Server {
	return &Server{statusFn: statusFn}
}

// Start binds addr and begins serving in the background. addr is
// typically "127.0.0.1:0" to bind a random port, or a configured
// host:port. It returns the URL operators can fetch /status from.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("diag: listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[diag] server error: %v", err)
		}
	}()

	url := fmt.Sprintf("http://%s/status", ln.Addr().String())
	log.Printf("[diag] listening at %s", url)
	return url, nil
}

// Stop shuts the server down, waiting up to two seconds for in-flight
// requests to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

// URL returns the server's status URL, or "" if not started.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s/status", s.listener.Addr().String())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.statusFn()); err != nil {
		log.Printf("[diag] encode status: %v", err)
	}
}
