// Package status exposes the daemon's watchdogs over a small HTTP
// surface: a JSON snapshot, a liveness endpoint for the daemon itself,
// and a feed endpoint so supervised processes can check in over HTTP
// instead of a probe.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/3cpo-dev/doghouse/pkg/doghouse"
)

// DogStatus is one row of the snapshot.
type DogStatus struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Active  bool   `json:"active"`
	Healthy bool   `json:"healthy"`
}

// Server serves the status endpoints for one House.
type Server struct {
	house  *doghouse.House
	log    zerolog.Logger
	server *http.Server
}

// NewServer returns a Server listening on addr once Start is called.
func NewServer(addr string, house *doghouse.House, log zerolog.Logger) *Server {
	s := &Server{
		house: house,
		log:   log.With().Str("component", "status").Logger(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/feed", s.feedHandler)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("status endpoint listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var dogs []DogStatus
	s.house.Range(func(name string, d doghouse.Watchdog) bool {
		dogs = append(dogs, DogStatus{
			Name:    name,
			Kind:    KindOf(d),
			Active:  d.Active(),
			Healthy: !d.ShouldBark(now),
		})
		return true
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"time": now.UTC().Format(time.RFC3339),
		"dogs": dogs,
	})
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// feedHandler feeds the named dog: POST /feed?dog=heartbeat.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("dog")
	if name == "" {
		http.Error(w, "missing dog parameter", http.StatusBadRequest)
		return
	}
	d, ok := s.house.Get(name)
	if !ok {
		http.Error(w, "no such dog", http.StatusNotFound)
		return
	}
	d.Feed()
	s.log.Debug().Str("dog", d.Name()).Msg("fed over http")
	w.WriteHeader(http.StatusNoContent)
}

// KindOf names the policy of a watchdog for display.
func KindOf(d doghouse.Watchdog) string {
	switch d.(type) {
	case *doghouse.TimeDog:
		return "time"
	case *doghouse.EventDog:
		return "event"
	default:
		return "custom"
	}
}
