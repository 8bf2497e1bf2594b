// Package web provides an HTTP status server for the vent-remote daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"unicode/utf8"

	"github.com/sweeney/vent-remote/internal/logic"
	"github.com/sweeney/vent-remote/internal/status"
)

// Queue accepts command keys for execution. Enqueue reports false when the
// key could not be queued.
type Queue interface {
	Enqueue(key rune) bool
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	queue      Queue
}

// New creates a Server that reads state from the given tracker and submits
// commands to queue. A nil queue disables command submission.
func New(addr string, tracker *status.Tracker, queue Queue) *Server {
	s := &Server{tracker: tracker, queue: queue}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/command", s.handleCommand)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.queue != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.queue == nil {
		http.Error(w, "commands disabled", http.StatusNotFound)
		return
	}

	raw := r.FormValue("key")
	key, size := utf8.DecodeRuneInString(raw)
	if raw == "" || size != len(raw) {
		http.Error(w, "key must be a single character", http.StatusBadRequest)
		return
	}
	cmd, ok := logic.Lookup(key)
	if !ok {
		http.Error(w, logic.OutcomeUnknownCommand.Message(), http.StatusBadRequest)
		return
	}
	if !s.queue.Enqueue(key) {
		http.Error(w, "busy, try again later", http.StatusServiceUnavailable)
		return
	}

	// HTML form posts come back to the status page.
	if acceptsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(string(cmd.Key) + ": " + cmd.Help + "\n"))
}
