package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.W2 != 300 {
		t.Errorf("W2 = %v, want 300", cfg.W2)
	}
	if cfg.VirtualGames != 2 {
		t.Errorf("VirtualGames = %v, want 2", cfg.VirtualGames)
	}
	if cfg.MaxIterations != 0 {
		t.Errorf("MaxIterations = %v, want 0 (run to convergence)", cfg.MaxIterations)
	}
	if cfg.TuneHoldoutFraction <= 0 || cfg.TuneHoldoutFraction >= 1 {
		t.Errorf("TuneHoldoutFraction = %v, want in (0,1)", cfg.TuneHoldoutFraction)
	}
	if len(cfg.TuneCandidates) == 0 {
		t.Error("TuneCandidates empty")
	}
}
