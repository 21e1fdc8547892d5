// Package api exposes the simulation over HTTP for map/UI consumers:
// train snapshots, per-agency stats, and virtual clock control.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"transitsim/internal/clock"
	"transitsim/internal/engine"
)

// Server wires the engines and the clock into a chi router.
type Server struct {
	engines map[string]*engine.Engine
	clock   *clock.Clock
}

func NewServer(engines map[string]*engine.Engine, clk *clock.Clock) *Server {
	return &Server{engines: engines, clock: clk}
}

// Router builds the HTTP routes.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api/trains", s.handleAllTrains)
	r.Get("/api/trains/{agency}", s.handleAgencyTrains)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/clock", s.handleClock)
	r.Post("/api/clock/play", s.clockAction(func() { s.clock.Play() }))
	r.Post("/api/clock/pause", s.clockAction(func() { s.clock.Pause() }))
	r.Post("/api/clock/toggle", s.clockAction(func() { s.clock.Toggle() }))
	r.Post("/api/clock/speed", s.handleSetSpeed)
	r.Post("/api/clock/time", s.handleSetTime)

	return r
}

// TrainsResponse is the JSON envelope for train snapshot endpoints.
type TrainsResponse struct {
	Trains    []engine.Train `json:"trains"`
	Count     int            `json:"count"`
	ClockTime string         `json:"clockTime"`
}

// ClockResponse describes the virtual clock state.
type ClockResponse struct {
	Seconds   int     `json:"seconds"`
	Formatted string  `json:"formatted"`
	Playing   bool    `json:"playing"`
	Speed     float64 `json:"speed"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"agencies":  len(s.engines),
		"clockTime": s.clock.FormattedTime(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleAllTrains(w http.ResponseWriter, r *http.Request) {
	trains := []engine.Train{}
	for _, name := range s.agencyNames() {
		trains = append(trains, s.engines[name].ActiveTrains()...)
	}
	writeJSON(w, http.StatusOK, TrainsResponse{
		Trains:    trains,
		Count:     len(trains),
		ClockTime: s.clock.FormattedTime(),
	})
}

func (s *Server) handleAgencyTrains(w http.ResponseWriter, r *http.Request) {
	agency := chi.URLParam(r, "agency")
	eng, ok := s.engines[agency]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown agency: " + agency})
		return
	}
	trains := eng.ActiveTrains()
	writeJSON(w, http.StatusOK, TrainsResponse{
		Trains:    trains,
		Count:     len(trains),
		ClockTime: s.clock.FormattedTime(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]engine.Stats, len(s.engines))
	for name, eng := range s.engines {
		stats[name] = eng.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agencies":  stats,
		"clockTime": s.clock.FormattedTime(),
	})
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clockState())
}

func (s *Server) clockAction(action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action()
		writeJSON(w, http.StatusOK, s.clockState())
	}
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	s.clock.SetSpeed(body.Speed)
	writeJSON(w, http.StatusOK, s.clockState())
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Time    string `json:"time"`
		Seconds *int   `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	switch {
	case body.Seconds != nil:
		s.clock.SetTimeOfDay(*body.Seconds)
	case body.Time != "":
		s.clock.JumpTo(body.Time)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "time or seconds required"})
		return
	}
	writeJSON(w, http.StatusOK, s.clockState())
}

func (s *Server) clockState() ClockResponse {
	return ClockResponse{
		Seconds:   s.clock.TimeOfDaySeconds(),
		Formatted: s.clock.FormattedTime(),
		Playing:   s.clock.Playing(),
		Speed:     s.clock.Speed(),
	}
}

func (s *Server) agencyNames() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
