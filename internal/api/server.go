// Package api exposes the game archive and the optimizer over a small JSON
// HTTP API.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"whr-rank/internal/config"
	"whr-rank/internal/db"
	"whr-rank/internal/logger"
	"whr-rank/internal/whr"

	"golang.org/x/sync/singleflight"
)

// Server wires the archive database and fit parameters to HTTP handlers.
type Server struct {
	cfg *config.Config
	db  *db.DB

	// Concurrent fit requests collapse into one optimization run.
	fitGroup singleflight.Group
}

func NewServer(cfg *config.Config, database *db.DB) *Server {
	return &Server{cfg: cfg, db: database}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/games", s.handleAddGames)
	mux.HandleFunc("POST /api/fit", s.handleFit)
	mux.HandleFunc("GET /api/ratings", s.handleRatings)
	mux.HandleFunc("GET /api/ratings/{name}", s.handlePlayerRatings)
	mux.HandleFunc("POST /api/evaluate", s.handleEvaluate)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.db.GameCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "games": count})
}

func (s *Server) handleAddGames(w http.ResponseWriter, r *http.Request) {
	var games []whr.GameRecord
	if err := json.NewDecoder(r.Body).Decode(&games); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode games: %w", err))
		return
	}
	for _, g := range games {
		if g.Black == g.White {
			writeError(w, http.StatusBadRequest, fmt.Errorf("self-play game %s vs %s", g.Black, g.White))
			return
		}
	}
	n, err := s.db.InsertGames(games)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"inserted": n})
}

// handleFit runs one optimization over the whole archive and persists the
// result. Overlapping requests share a single run via singleflight.
func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	v, err, shared := s.fitGroup.Do("fit", func() (interface{}, error) {
		return s.runFit()
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	run := v.(*db.FitRun)
	if shared {
		logger.Info("Fit", "Joined in-flight run "+run.ID)
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) runFit() (*db.FitRun, error) {
	games, err := s.db.LoadGames()
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("archive is empty")
	}

	base := whr.New(s.cfg.W2, s.cfg.VirtualGames)
	base.CreateGames(games)
	sweeps := 0
	if s.cfg.MaxIterations > 0 {
		base.Iterate(s.cfg.MaxIterations)
		sweeps = s.cfg.MaxIterations
	} else {
		sweeps = base.IterateUntilConverge(s.cfg.Verbose)
	}

	run := db.FitRun{
		W2:            s.cfg.W2,
		VirtualGames:  s.cfg.VirtualGames,
		Sweeps:        sweeps,
		GameCount:     base.GameCount(),
		LogLikelihood: base.LogLikelihood(),
	}
	id, err := s.db.SaveRun(run, base.OrderedRatings())
	if err != nil {
		return nil, err
	}
	run.ID = id
	logger.Success("Fit", fmt.Sprintf("Run %s converged in %d sweeps over %d games", id, sweeps, run.GameCount))
	return &run, nil
}

func (s *Server) latestRatings(w http.ResponseWriter) ([]whr.PlayerRatings, bool) {
	run, err := s.db.LatestRun()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no fit run yet"))
		return nil, false
	}
	ratings, err := s.db.RatingsForRun(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return ratings, true
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	ratings, ok := s.latestRatings(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

func (s *Server) handlePlayerRatings(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ratings, ok := s.latestRatings(w)
	if !ok {
		return
	}
	for _, pr := range ratings {
		if pr.Name == name {
			writeJSON(w, http.StatusOK, pr)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("unknown player %q", name))
}

type evaluateRequest struct {
	Games             []whr.GameRecord `json:"games"`
	IgnoreNullPlayers *bool            `json:"ignore_null_players,omitempty"`
}

// handleEvaluate scores held-out games against the latest persisted run.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Games) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no games to evaluate"))
		return
	}
	ignoreNull := true
	if req.IgnoreNullPlayers != nil {
		ignoreNull = *req.IgnoreNullPlayers
	}

	ratings, ok := s.latestRatings(w)
	if !ok {
		return
	}
	ev := whr.NewEvaluateFromRatings(ratings)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games":              len(req.Games),
		"ave_log_likelihood": ev.AveLogLikelihood(req.Games, ignoreNull),
	})
}
