package whr

import (
	"math"
	"sort"
)

type ratingPoint struct {
	timeStep int
	elo      float64
}

// Evaluate is a frozen snapshot of a Base's ratings, indexed by player and
// time step, for scoring held-out games. It never touches the live Base
// after construction.
type Evaluate struct {
	ratingsByPlayer map[string][]ratingPoint
}

// NewEvaluate snapshots every registered player's (time step, elo) history,
// sorted ascending by time step. Players known to the Base but without days
// get an empty history, which Rating resolves to 0.
func NewEvaluate(base *Base) *Evaluate {
	e := &Evaluate{ratingsByPlayer: make(map[string][]ratingPoint)}
	for name, p := range base.Players() {
		ratings := make([]ratingPoint, 0, len(p.days))
		for _, d := range p.days {
			ratings = append(ratings, ratingPoint{timeStep: d.timeStep, elo: d.Elo()})
		}
		sort.Slice(ratings, func(i, j int) bool {
			return ratings[i].timeStep < ratings[j].timeStep
		})
		e.ratingsByPlayer[name] = ratings
	}
	return e
}

// NewEvaluateFromRatings rebuilds a snapshot from persisted rating
// histories, e.g. a stored fit run, without needing the live Base.
func NewEvaluateFromRatings(ratings []PlayerRatings) *Evaluate {
	e := &Evaluate{ratingsByPlayer: make(map[string][]ratingPoint)}
	for _, pr := range ratings {
		points := make([]ratingPoint, 0, len(pr.History))
		for _, r := range pr.History {
			points = append(points, ratingPoint{timeStep: r.TimeStep, elo: r.Elo})
		}
		sort.Slice(points, func(i, j int) bool {
			return points[i].timeStep < points[j].timeStep
		})
		e.ratingsByPlayer[pr.Name] = points
	}
	return e
}

const unsetStep = math.MinInt32

// Rating interpolates a player's elo at timeStep: piecewise linear between
// the bracketing days, clamped to the nearest end outside the history.
// Unknown players yield NaN when ignoreNullPlayers is set and 0 otherwise.
func (e *Evaluate) Rating(name string, timeStep int, ignoreNullPlayers bool) float64 {
	ratings, ok := e.ratingsByPlayer[name]
	if !ok {
		if ignoreNullPlayers {
			return math.NaN()
		}
		return 0
	}
	minStep, maxStep := unsetStep, unsetStep
	minRating, maxRating := 0.0, 0.0
	for _, r := range ratings {
		if r.timeStep <= timeStep {
			if minStep == unsetStep || r.timeStep >= minStep {
				minStep = r.timeStep
				minRating = r.elo
			}
		}
		if r.timeStep >= timeStep {
			if maxStep == unsetStep || r.timeStep <= maxStep {
				maxStep = r.timeStep
				maxRating = r.elo
			}
		}
	}
	if minStep == unsetStep {
		return maxRating
	}
	if maxStep == unsetStep {
		return minRating
	}
	if maxStep <= minStep {
		// Both brackets landed on the same day.
		return maxRating
	}
	return (float64(maxStep-timeStep)*minRating + float64(timeStep-minStep)*maxRating) /
		float64(maxStep-minStep)
}

// EvaluateSingleGame returns the Bradley-Terry probability of the recorded
// outcome under the snapshot (geometric mean for draws), or NaN when either
// rating is unresolvable.
func (e *Evaluate) EvaluateSingleGame(g GameRecord, ignoreNullPlayers bool) float64 {
	blackRating := e.Rating(g.Black, g.TimeStep, ignoreNullPlayers)
	whiteRating := e.Rating(g.White, g.TimeStep, ignoreNullPlayers)
	if math.IsNaN(blackRating) || math.IsInf(blackRating, 0) ||
		math.IsNaN(whiteRating) || math.IsInf(whiteRating, 0) {
		return math.NaN()
	}
	whiteGamma := math.Pow(10, whiteRating/400)
	blackAdjustedGamma := math.Pow(10, (blackRating+g.Handicap)/400)
	switch ParseWinner(g.Winner) {
	case White:
		return whiteGamma / (whiteGamma + blackAdjustedGamma)
	case Black:
		return blackAdjustedGamma / (whiteGamma + blackAdjustedGamma)
	default:
		return math.Sqrt(whiteGamma*blackAdjustedGamma) / (whiteGamma + blackAdjustedGamma)
	}
}

// AveLogLikelihood averages ln(likelihood) over the held-out games whose
// likelihood is finite; 0 when none are.
func (e *Evaluate) AveLogLikelihood(games []GameRecord, ignoreNullPlayers bool) float64 {
	sum := 0.0
	count := 0
	for _, g := range games {
		l := e.EvaluateSingleGame(g, ignoreNullPlayers)
		if !math.IsNaN(l) && !math.IsInf(l, 0) {
			sum += math.Log(l)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
