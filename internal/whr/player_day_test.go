package whr

import (
	"math"
	"testing"
)

// dayWithOneWin builds A's first day: one win over B (both at elo 0) plus
// the two virtual anchor draws.
func dayWithOneWin(t *testing.T) (*Base, *PlayerDay) {
	t.Helper()
	b := New(300, 2)
	b.CreateGame("A", "B", "B", 0, 0) // black A wins
	return b, b.players["A"].days[0]
}

func TestGameTermEncodings(t *testing.T) {
	b := New(300, 2)
	b.CreateGames([]GameRecord{
		{Black: "A", White: "B", Winner: "B", TimeStep: 0}, // A wins
		{Black: "A", White: "C", Winner: "D", TimeStep: 0}, // draw
		{Black: "A", White: "E", Winner: "W", TimeStep: 0}, // A loses
	})
	day := b.players["A"].days[0]
	day.computeGameTerms()

	// All opponents sit at gamma 1, so every d is 1.
	if len(day.wonTerms) != 1 || day.wonTerms[0] != (gameTerm{1, 0, 1, 1}) {
		t.Errorf("won terms = %+v, want [(1 0 1 1)]", day.wonTerms)
	}
	if len(day.lostTerms) != 1 || day.lostTerms[0] != (gameTerm{0, 1, 1, 1}) {
		t.Errorf("lost terms = %+v, want [(0 1 1 1)]", day.lostTerms)
	}
	// One real draw plus two virtual anchor draws on the first day.
	if len(day.drawTerms) != 3 {
		t.Fatalf("draw terms = %d, want 3 (1 real + 2 virtual)", len(day.drawTerms))
	}
	if day.drawTerms[0] != (gameTerm{0.5, 0.5, 1, 1}) {
		t.Errorf("real draw term = %+v, want (0.5 0.5 1 1)", day.drawTerms[0])
	}
	for i, vt := range day.drawTerms[1:] {
		if vt != (gameTerm{0.5, 0.5, 1, 1}) {
			t.Errorf("virtual draw term %d = %+v, want (0.5 0.5 1 1)", i, vt)
		}
	}
}

func TestVirtualDraws_OnlyOnFirstDay(t *testing.T) {
	b := New(300, 2)
	b.CreateGame("A", "B", "B", 0, 0)
	b.CreateGame("A", "B", "B", 4, 0)
	p := b.players["A"]
	p.days[0].computeGameTerms()
	p.days[1].computeGameTerms()
	if len(p.days[0].drawTerms) != 2 {
		t.Errorf("first day draw terms = %d, want 2 virtual", len(p.days[0].drawTerms))
	}
	if len(p.days[1].drawTerms) != 0 {
		t.Errorf("second day draw terms = %d, want 0", len(p.days[1].drawTerms))
	}
}

func TestLogLikelihoodDerivatives_HandComputed(t *testing.T) {
	_, day := dayWithOneWin(t)

	// At r=0 with all gammas 1: terms are 1 win + 2 virtual draws, each with
	// c/(c*gamma+d) = 1/2 and c*d/(c*gamma+d)^2 = 1/4.
	// L'  = 1 + 0.5*2 - 1*(3/2) = 0.5
	// L'' = -1 * 3/4           = -0.75
	if got := day.logLikelihoodDerivative(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("L' = %v, want 0.5", got)
	}
	if got := day.logLikelihoodSecondDerivative(); math.Abs(got+0.75) > 1e-12 {
		t.Errorf("L'' = %v, want -0.75", got)
	}

	// L = [ln(1*1) - ln(2)] + 2*[0.5*ln(2*0.5*1) + 0.5*ln(2*0.5) - ln(2)]
	//   = -3*ln 2
	if got := day.logLikelihood(); math.Abs(got-(-3*math.Ln2)) > 1e-12 {
		t.Errorf("L = %v, want %v", got, -3*math.Ln2)
	}
}

func TestUpdateBy1DNewton(t *testing.T) {
	_, day := dayWithOneWin(t)
	day.updateBy1DNewton()
	// r <- 0 - 0.5 / (-0.75) = 2/3.
	if math.Abs(day.r-2.0/3.0) > 1e-12 {
		t.Errorf("r after 1-D Newton = %v, want 2/3", day.r)
	}
}

func TestTermCache_StaleUntilCleared(t *testing.T) {
	b, day := dayWithOneWin(t)
	before := day.logLikelihoodDerivative()

	// Move the opponent: cached terms must NOT see it...
	b.players["B"].days[0].SetElo(400)
	if got := day.logLikelihoodDerivative(); got != before {
		t.Errorf("cached derivative moved: %v -> %v", before, got)
	}
	// ...until the cache is cleared.
	day.clearGameTermsCache()
	after := day.logLikelihoodDerivative()
	if after == before {
		t.Error("derivative unchanged after cache clear against a moved opponent")
	}
	// A stronger opponent makes the win worth more: derivative rises.
	if after <= before {
		t.Errorf("derivative = %v, want above %v against a stronger opponent", after, before)
	}
}
