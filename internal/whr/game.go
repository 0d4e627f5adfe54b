package whr

import (
	"fmt"
	"math"
)

// Winner is the recorded outcome of a game, from the board's perspective.
type Winner int

const (
	White Winner = iota
	Black
	Draw
)

// ParseWinner maps the archive codes "W" and "B"; anything else is a draw.
func ParseWinner(code string) Winner {
	switch code {
	case "W":
		return White
	case "B":
		return Black
	default:
		return Draw
	}
}

func (w Winner) String() string {
	switch w {
	case White:
		return "W"
	case Black:
		return "B"
	default:
		return "D"
	}
}

// gameTerm summarizes one game's contribution to a day's likelihood as a
// function of that day's gamma: (a*gamma + b) in the numerator family,
// (c*gamma + d) in the denominator.
type gameTerm struct {
	a, b, c, d float64
}

// Game is a single observation binding two players at one time step.
// Once appended to a Base it also holds back-references to the PlayerDay of
// each color at its time step; those are wired by Player.addGame.
type Game struct {
	timeStep int
	white    *Player
	black    *Player
	winner   Winner
	handicap float64
	wpd      *PlayerDay
	bpd      *PlayerDay
}

func newGame(black, white *Player, winner string, timeStep int, handicap float64) *Game {
	return &Game{
		timeStep: timeStep,
		white:    white,
		black:    black,
		winner:   ParseWinner(winner),
		handicap: handicap,
	}
}

func (g *Game) TimeStep() int      { return g.timeStep }
func (g *Game) Winner() Winner     { return g.winner }
func (g *Game) WhitePlayer() *Player { return g.white }
func (g *Game) BlackPlayer() *Player { return g.black }

func (g *Game) String() string {
	wr, br := 0.0, 0.0
	if g.wpd != nil {
		wr = g.wpd.r
	}
	if g.bpd != nil {
		br = g.bpd.r
	}
	return fmt.Sprintf("Game: W:%s(%.2f) B:%s(%.2f) winner = %s, handicap = %.2f",
		g.white.name, wr, g.black.name, br, g.winner, g.handicap)
}

// opponentsAdjustedGamma returns the Bradley-Terry strength of the viewer's
// opponent, with the handicap folded into black's effective elo. It reads the
// opponent's current rating through the bound PlayerDay, so term caches built
// from it go stale whenever the opponent moves.
func (g *Game) opponentsAdjustedGamma(viewer *Player) float64 {
	var opponentElo float64
	if viewer == g.white {
		opponentElo = g.bpd.Elo() + g.handicap
	} else {
		opponentElo = g.wpd.Elo() - g.handicap
	}
	return math.Pow(10, opponentElo/400)
}

func (g *Game) whiteWinProbability() float64 {
	gamma := g.wpd.Gamma()
	return gamma / (gamma + g.opponentsAdjustedGamma(g.white))
}

func (g *Game) blackWinProbability() float64 {
	gamma := g.bpd.Gamma()
	return gamma / (gamma + g.opponentsAdjustedGamma(g.black))
}

// Likelihood is the Bradley-Terry probability of the observed outcome; for a
// draw it is the geometric mean of the two win probabilities, a convention
// used only for evaluation.
func (g *Game) Likelihood() float64 {
	switch g.winner {
	case White:
		return g.whiteWinProbability()
	case Black:
		return g.blackWinProbability()
	default:
		return math.Sqrt(g.whiteWinProbability() * g.blackWinProbability())
	}
}
