// Package server exposes predictions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/evaluate"
	"github.com/pable/go-tennis-mc/internal/metrics"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
	"github.com/pable/go-tennis-mc/internal/sim"
)

// Server answers prediction requests from an in-memory registry.
type Server struct {
	players   *player.Registry
	evaluator *evaluate.Evaluator
	metrics   *metrics.Manager
	logger    zerolog.Logger
}

// New returns a server over players. The evaluator must draw from the same
// registry.
func New(players *player.Registry, ev *evaluate.Evaluator, m *metrics.Manager, logger zerolog.Logger) *Server {
	return &Server{players: players, evaluator: ev, metrics: m, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/healthz", s.health)
	r.Get("/players", s.listPlayers)
	r.Get("/players/{name}", s.getPlayer)
	r.Get("/predict", s.predict)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Int("players", s.players.Len()).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// instrument records every request by its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, ww.Status(), elapsed)
		s.logger.Debug().Str("method", r.Method).Str("route", route).
			Int("status", ww.Status()).Dur("elapsed", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"players": s.players.Len(),
	})
}

type playerJSON struct {
	Name          string   `json:"name"`
	ServePoints   int      `json:"serve_points"`
	ReceivePoints int      `json:"receive_points"`
	ServeWinPct   *float64 `json:"serve_win_pct"`
	ReceiveWinPct *float64 `json:"receive_win_pct"`
}

func toPlayerJSON(p model.PlayerSummary) playerJSON {
	out := playerJSON{Name: p.Name, ServePoints: p.ServePoints, ReceivePoints: p.ReceivePoints}
	if p.ServeWinPct >= 0 {
		v := p.ServeWinPct
		out.ServeWinPct = &v
	}
	if p.ReceiveWinPct >= 0 {
		v := p.ReceiveWinPct
		out.ReceiveWinPct = &v
	}
	return out
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	models := s.players.Models()
	out := make([]playerJSON, 0, len(models))
	for _, m := range models {
		out = append(out, toPlayerJSON(m.Summary()))
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	m, err := s.players.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toPlayerJSON(m.Summary()))
}

type predictionJSON struct {
	Player1   string     `json:"player1"`
	Player2   string     `json:"player2"`
	Format    string     `json:"format"`
	P         float64    `json:"p"`
	HalfWidth float64    `json:"half_width"`
	Interval  [2]float64 `json:"interval"`
	Trials    int        `json:"trials"`
	Converged bool       `json:"converged"`
	Winner    string     `json:"winner"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p1, p2 := q.Get("p1"), q.Get("p2")
	if p1 == "" || p2 == "" {
		errorJSON(w, http.StatusBadRequest, "p1 and p2 are required")
		return
	}
	format := s.evaluator.Format()
	if f := q.Get("format"); f != "" {
		var err error
		if format, err = model.ParseFormat(f); err != nil {
			s.errorResponse(w, err)
			return
		}
	}

	res, err := s.evaluator.PredictFormat(r.Context(), p1, p2, format)
	var nce *estimate.NonConvergenceError
	if err != nil && !errors.As(err, &nce) {
		s.errorResponse(w, err)
		return
	}

	out := predictionJSON{
		Player1:   p1,
		Player2:   p2,
		Format:    format.String(),
		P:         res.P,
		HalfWidth: res.HalfWidth,
		Trials:    res.Trials,
		Converged: res.Converged,
		Winner:    p1,
	}
	out.Interval[0], out.Interval[1] = res.Interval()
	if res.Winner() == model.Player2 {
		out.Winner = p2
	}
	jsonResponse(w, http.StatusOK, out)
}

// errorResponse maps domain errors to status codes.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	var cfgErr *model.ConfigurationError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, player.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrInsufficientData),
		errors.Is(err, sim.ErrUndecidableTiebreak),
		errors.Is(err, sim.ErrUndecidableGame):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &cfgErr):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error().Err(err).Msg("request failed")
	}
	errorJSON(w, status, err.Error())
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorJSON(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}
