package config

// Config holds fit and server settings (in-memory representation).
// Persistence is handled by the internal/db package.
type Config struct {
	// W2 is the Brownian prior variance rate, in elo^2 per time step.
	W2 float64 `json:"w2"`
	// VirtualGames anchors each player's first day with this many drawn
	// games against a unit-strength phantom opponent.
	VirtualGames int `json:"virtual_games"`
	// MaxIterations caps the fit at a fixed sweep count; 0 runs to
	// convergence.
	MaxIterations int `json:"max_iterations"`
	// Verbose prints per-sweep convergence deltas during a fit.
	Verbose bool `json:"verbose"`

	// Holdout tuning.
	TuneHoldoutFraction float64   `json:"tune_holdout_fraction"`
	TuneCandidates      []float64 `json:"tune_candidates"`
}

// Default returns a Config with the conventional WHR parameters.
func Default() *Config {
	return &Config{
		W2:                  300,
		VirtualGames:        2,
		MaxIterations:       0,
		TuneHoldoutFraction: 0.2,
		TuneCandidates:      []float64{10, 30, 100, 300, 1000},
	}
}
