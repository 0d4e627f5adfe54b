package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"whr-rank/internal/whr"

	"github.com/google/uuid"
)

// FitRun records one converged optimization over the archive.
type FitRun struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	W2            float64   `json:"w2"`
	VirtualGames  int       `json:"virtual_games"`
	Sweeps        int       `json:"sweeps"`
	GameCount     int       `json:"game_count"`
	LogLikelihood float64   `json:"log_likelihood"`
}

// SaveRun persists a run header plus every player's rating history in one
// transaction and returns the run id.
func (d *DB) SaveRun(run FitRun, ratings []whr.PlayerRatings) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO fit_runs (id, created_at, w2, virtual_games, sweeps, game_count, log_likelihood) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.CreatedAt.Format(time.RFC3339), run.W2, run.VirtualGames, run.Sweeps, run.GameCount, run.LogLikelihood,
	)
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO ratings (run_id, player, time_step, elo, stddev_elo) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("prepare ratings: %w", err)
	}
	defer stmt.Close()

	for _, pr := range ratings {
		for _, r := range pr.History {
			if _, err := stmt.Exec(run.ID, pr.Name, r.TimeStep, r.Elo, r.StddevElo); err != nil {
				tx.Rollback()
				return "", fmt.Errorf("insert rating: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

// LatestRun returns the most recent run header, or nil when none exist.
func (d *DB) LatestRun() (*FitRun, error) {
	row := d.sql.QueryRow("SELECT id, created_at, w2, virtual_games, sweeps, game_count, log_likelihood FROM fit_runs ORDER BY created_at DESC, id DESC LIMIT 1")
	var run FitRun
	var created string
	err := row.Scan(&run.ID, &created, &run.W2, &run.VirtualGames, &run.Sweeps, &run.GameCount, &run.LogLikelihood)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &run, nil
}

// RatingsForRun loads a run's rating histories, strongest player first by
// final elo.
func (d *DB) RatingsForRun(runID string) ([]whr.PlayerRatings, error) {
	rows, err := d.sql.Query(
		"SELECT player, time_step, elo, stddev_elo FROM ratings WHERE run_id = ? ORDER BY player, time_step", runID)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	byPlayer := map[string]*whr.PlayerRatings{}
	var order []string
	for rows.Next() {
		var name string
		var r whr.Rating
		if err := rows.Scan(&name, &r.TimeStep, &r.Elo, &r.StddevElo); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		pr, ok := byPlayer[name]
		if !ok {
			pr = &whr.PlayerRatings{Name: name}
			byPlayer[name] = pr
			order = append(order, name)
		}
		pr.History = append(pr.History, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	res := make([]whr.PlayerRatings, 0, len(order))
	for _, name := range order {
		res = append(res, *byPlayer[name])
	}
	// Strongest first, matching the optimizer's ordered output.
	sortByFinalElo(res)
	return res, nil
}

func sortByFinalElo(ratings []whr.PlayerRatings) {
	sort.SliceStable(ratings, func(i, j int) bool {
		return finalElo(ratings[i]) > finalElo(ratings[j])
	})
}

func finalElo(pr whr.PlayerRatings) float64 {
	if len(pr.History) == 0 {
		return 0
	}
	return pr.History[len(pr.History)-1].Elo
}
