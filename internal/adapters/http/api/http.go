// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/crewscore/internal/app/recalc"
	"github.com/okian/crewscore/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Recalculate rescores and persists a whole group.
	Recalculate(ctx context.Context, groupID string) (recalc.Result, error)

	// MemberScore computes a member's score on demand.
	MemberScore(ctx context.Context, groupID, memberID string) (types.MemberScoreResponse, error)

	// Leaderboard reads the top n persisted scores of a group.
	Leaderboard(ctx context.Context, groupID string, n int) (types.Leaderboard, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	recalcHandler      *RecalculateHandler
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		recalcHandler:      NewRecalculateHandler(deps),
		scoreHandler:       NewScoreHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	g := r.PathPrefix("/groups/{groupID}").Subrouter()
	g.HandleFunc("/recalculate", MetricsMiddleware(s.recalcHandler.HandleRecalculate, "recalculate")).Methods(http.MethodPost)
	g.HandleFunc("/members/{memberID}/score", MetricsMiddleware(s.scoreHandler.HandleGetScore, "score")).Methods(http.MethodGet)
	g.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).Methods(http.MethodGet)
}

// Router returns a new router with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.Register(r)
	return r
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

// isNotFound translates engine not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, recalc.ErrGroupNotFound) ||
		errors.Is(err, recalc.ErrMemberNotFound) ||
		errors.Is(err, ErrNotFound)
}
