package whr

import (
	"math"
	"testing"
)

// seededEvaluate builds a snapshot where P has days (0, 100.0) and
// (10, 200.0), seeding the converged values directly.
func seededEvaluate(t *testing.T) *Evaluate {
	t.Helper()
	b := New(300, 2)
	b.CreateGame("P", "Q2", "W", 0, 0)
	b.CreateGame("P", "Q2", "W", 10, 0)
	p := b.players["P"]
	if len(p.days) != 2 {
		t.Fatalf("expected 2 days for P, got %d", len(p.days))
	}
	p.days[0].SetElo(100)
	p.days[1].SetElo(200)
	return NewEvaluate(b)
}

func TestRating_Interpolation(t *testing.T) {
	e := seededEvaluate(t)

	// (10-4)*100 + (4-0)*200 over 10 = 140.
	if got := e.Rating("P", 4, true); math.Abs(got-140) > 1e-9 {
		t.Errorf("Rating(P, 4) = %v, want 140", got)
	}
	// Clamped below and above the history. The seeded elos pass through the
	// natural-log scale, so they come back within a few ULPs of 100 and 200.
	if got := e.Rating("P", -5, true); math.Abs(got-100) > 1e-12 {
		t.Errorf("Rating(P, -5) = %v, want 100", got)
	}
	if got := e.Rating("P", 99, true); math.Abs(got-200) > 1e-12 {
		t.Errorf("Rating(P, 99) = %v, want 200", got)
	}
	// Exact hits return the stored elo.
	if got := e.Rating("P", 0, true); math.Abs(got-100) > 1e-12 {
		t.Errorf("Rating(P, 0) = %v, want 100", got)
	}
	if got := e.Rating("P", 10, true); math.Abs(got-200) > 1e-12 {
		t.Errorf("Rating(P, 10) = %v, want 200", got)
	}
}

func TestRating_UnknownPlayer(t *testing.T) {
	e := seededEvaluate(t)
	if got := e.Rating("Q", 4, true); !math.IsNaN(got) {
		t.Errorf("Rating(unknown, ignore) = %v, want NaN", got)
	}
	if got := e.Rating("Q", 4, false); got != 0 {
		t.Errorf("Rating(unknown, keep) = %v, want 0", got)
	}
}

func TestRating_KnownPlayerWithoutDays(t *testing.T) {
	b := New(300, 2)
	b.CreateGame("P", "Q2", "W", 0, 0)
	b.RatingsForPlayer("Empty") // registers an empty-history player
	e := NewEvaluate(b)
	// Registered but dayless players resolve to 0, not NaN.
	if got := e.Rating("Empty", 3, true); got != 0 {
		t.Errorf("Rating(empty-history) = %v, want 0", got)
	}
}

func TestEvaluateSingleGame(t *testing.T) {
	e := seededEvaluate(t)

	// At t=0, P's elo is 100 against a phantom at Q's NaN -> NaN.
	if got := e.EvaluateSingleGame(GameRecord{Black: "P", White: "Q", Winner: "W", TimeStep: 0}, true); !math.IsNaN(got) {
		t.Errorf("likelihood with unknown opponent = %v, want NaN", got)
	}

	// P (white, elo 100) against Q (black, unknown -> 0 with the flag off):
	// P(white wins) = 10^(100/400) / (10^(100/400) + 1).
	wg := math.Pow(10, 100.0/400)
	want := wg / (wg + 1)
	got := e.EvaluateSingleGame(GameRecord{Black: "Q", White: "P", Winner: "W", TimeStep: 0}, false)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("white-win likelihood = %v, want %v", got, want)
	}

	// Same matchup recorded as a draw: geometric mean of the strengths.
	wantDraw := math.Sqrt(wg*1) / (wg + 1)
	gotDraw := e.EvaluateSingleGame(GameRecord{Black: "Q", White: "P", Winner: "D", TimeStep: 0}, false)
	if math.Abs(gotDraw-wantDraw) > 1e-12 {
		t.Errorf("draw likelihood = %v, want %v", gotDraw, wantDraw)
	}

	// Handicap folds into black's effective gamma.
	bg := math.Pow(10, (0.0+50)/400)
	wantH := bg / (wg + bg)
	gotH := e.EvaluateSingleGame(GameRecord{Black: "Q", White: "P", Winner: "B", TimeStep: 0, Handicap: 50}, false)
	if math.Abs(gotH-wantH) > 1e-12 {
		t.Errorf("handicapped black-win likelihood = %v, want %v", gotH, wantH)
	}
}

func TestAveLogLikelihood(t *testing.T) {
	e := seededEvaluate(t)

	games := []GameRecord{
		{Black: "Q2", White: "P", Winner: "W", TimeStep: 0},  // finite
		{Black: "P", White: "Q", Winner: "W", TimeStep: 5},   // NaN: Q unknown
		{Black: "Q2", White: "P", Winner: "B", TimeStep: 10}, // finite
	}

	wg0 := math.Pow(10, 100.0/400)
	q0 := math.Pow(10, e.Rating("Q2", 0, true)/400)
	l1 := wg0 / (wg0 + q0)
	wg10 := math.Pow(10, 200.0/400)
	q2 := math.Pow(10, e.Rating("Q2", 10, true)/400)
	l2 := q2 / (wg10 + q2)
	want := (math.Log(l1) + math.Log(l2)) / 2

	got := e.AveLogLikelihood(games, true)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("AveLogLikelihood = %v, want %v", got, want)
	}

	// No finite games at all: zero, not NaN.
	if got := e.AveLogLikelihood([]GameRecord{{Black: "X", White: "Y", Winner: "W", TimeStep: 0}}, true); got != 0 {
		t.Errorf("AveLogLikelihood(all unknown) = %v, want 0", got)
	}
}

func TestEvaluate_IsASnapshot(t *testing.T) {
	b := New(300, 2)
	b.CreateGame("P", "Q2", "W", 0, 0)
	p := b.players["P"]
	p.days[0].SetElo(150)
	e := NewEvaluate(b)
	p.days[0].SetElo(-999)
	if got := e.Rating("P", 0, true); math.Abs(got-150) > 1e-12 {
		t.Errorf("snapshot leaked live state: Rating = %v, want 150", got)
	}
}
