// Package tune searches the Brownian prior variance w2 by holdout
// cross-validation: the archive's most recent time steps are withheld, one
// independent Base is fit per candidate, and candidates are scored by the
// average held-out log-likelihood.
package tune

import (
	"context"
	"fmt"
	"math"
	"sort"

	"whr-rank/internal/whr"

	"golang.org/x/sync/errgroup"
)

// Result is one candidate's holdout score.
type Result struct {
	W2        float64 `json:"w2"`
	Sweeps    int     `json:"sweeps"`
	HoldoutLL float64 `json:"holdout_ll"`
	Scored    int     `json:"scored"` // holdout games with a finite likelihood
}

// Split partitions games into train and holdout by time step: the latest
// fraction of distinct steps is withheld, which respects the arrow of time
// instead of leaking future ratings into the fit.
func Split(games []whr.GameRecord, holdoutFraction float64) (train, holdout []whr.GameRecord) {
	if len(games) == 0 || holdoutFraction <= 0 {
		return games, nil
	}
	steps := map[int]bool{}
	for _, g := range games {
		steps[g.TimeStep] = true
	}
	sorted := make([]int, 0, len(steps))
	for s := range steps {
		sorted = append(sorted, s)
	}
	sort.Ints(sorted)

	cut := int(float64(len(sorted)) * (1 - holdoutFraction))
	if cut < 1 {
		cut = 1
	}
	if cut >= len(sorted) {
		return games, nil
	}
	cutStep := sorted[cut]
	for _, g := range games {
		if g.TimeStep < cutStep {
			train = append(train, g)
		} else {
			holdout = append(holdout, g)
		}
	}
	return train, holdout
}

// Sweep fits one independent Base per candidate w2 concurrently and scores
// each against the holdout. Bases never share state, so this is safe
// parallelism; the optimizer itself stays single-threaded per Base.
func Sweep(ctx context.Context, train, holdout []whr.GameRecord, candidates []float64, virtualGames int) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates")
	}
	if len(holdout) == 0 {
		return nil, fmt.Errorf("empty holdout")
	}

	results := make([]Result, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	for i, w2 := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			base := whr.New(w2, virtualGames)
			base.CreateGames(train)
			sweeps := base.IterateUntilConverge(false)
			ev := whr.NewEvaluate(base)

			scored := 0
			for _, hg := range holdout {
				if l := ev.EvaluateSingleGame(hg, true); !math.IsNaN(l) {
					scored++
				}
			}
			results[i] = Result{
				W2:        w2,
				Sweeps:    sweeps,
				HoldoutLL: ev.AveLogLikelihood(holdout, true),
				Scored:    scored,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Best returns the result with the highest holdout log-likelihood.
func Best(results []Result) Result {
	best := results[0]
	for _, r := range results[1:] {
		if r.HoldoutLL > best.HoldoutLL {
			best = r
		}
	}
	return best
}
