// Package report summarizes a converged rating table for console output.
package report

import (
	"fmt"
	"sort"

	"whr-rank/internal/logger"
	"whr-rank/internal/whr"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of final (most recent) elos across the
// rated population.
type Summary struct {
	Players   int     `json:"players"`
	Days      int     `json:"days"`
	MeanElo   float64 `json:"mean_elo"`
	StddevElo float64 `json:"stddev_elo"`
	MinElo    float64 `json:"min_elo"`
	MaxElo    float64 `json:"max_elo"`
	MedianElo float64 `json:"median_elo"`
	P25Elo    float64 `json:"p25_elo"`
	P75Elo    float64 `json:"p75_elo"`
}

// Summarize computes population statistics over each player's final elo.
// Players without history are skipped.
func Summarize(ratings []whr.PlayerRatings) Summary {
	var finals []float64
	days := 0
	for _, pr := range ratings {
		days += len(pr.History)
		if len(pr.History) > 0 {
			finals = append(finals, pr.History[len(pr.History)-1].Elo)
		}
	}
	s := Summary{Players: len(finals), Days: days}
	if len(finals) == 0 {
		return s
	}

	s.MeanElo = stat.Mean(finals, nil)
	if len(finals) > 1 {
		s.StddevElo = stat.StdDev(finals, nil)
	}
	s.MinElo = floats.Min(finals)
	s.MaxElo = floats.Max(finals)

	sort.Float64s(finals)
	s.P25Elo = stat.Quantile(0.25, stat.Empirical, finals, nil)
	s.MedianElo = stat.Quantile(0.5, stat.Empirical, finals, nil)
	s.P75Elo = stat.Quantile(0.75, stat.Empirical, finals, nil)
	return s
}

// Print writes the summary through the logger in Section/Stats form.
func Print(s Summary) {
	logger.Section("Rating distribution")
	logger.Stats("Players", s.Players)
	logger.Stats("Player-days", s.Days)
	logger.Stats("Mean elo", fmt.Sprintf("%.1f", s.MeanElo))
	logger.Stats("Std dev", fmt.Sprintf("%.1f", s.StddevElo))
	logger.Stats("Min / max", fmt.Sprintf("%.1f / %.1f", s.MinElo, s.MaxElo))
	logger.Stats("Quartiles", fmt.Sprintf("%.1f / %.1f / %.1f", s.P25Elo, s.MedianElo, s.P75Elo))
}
