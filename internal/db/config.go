package db

import (
	"strconv"
	"strings"

	"whr-rank/internal/config"
)

// LoadConfig reads settings from the config table, falling back to defaults
// for missing keys.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}
	if len(m) == 0 {
		return cfg
	}

	if v, ok := m["w2"]; ok {
		cfg.W2, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["virtual_games"]; ok {
		cfg.VirtualGames, _ = strconv.Atoi(v)
	}
	if v, ok := m["max_iterations"]; ok {
		cfg.MaxIterations, _ = strconv.Atoi(v)
	}
	if v, ok := m["verbose"]; ok {
		cfg.Verbose = v == "true"
	}
	if v, ok := m["tune_holdout_fraction"]; ok {
		cfg.TuneHoldoutFraction, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["tune_candidates"]; ok {
		var cands []float64
		for _, s := range strings.Split(v, ",") {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				cands = append(cands, f)
			}
		}
		if len(cands) > 0 {
			cfg.TuneCandidates = cands
		}
	}
	return cfg
}

// SaveConfig upserts every setting as a key/value row.
func (d *DB) SaveConfig(cfg *config.Config) error {
	cands := make([]string, 0, len(cfg.TuneCandidates))
	for _, c := range cfg.TuneCandidates {
		cands = append(cands, strconv.FormatFloat(c, 'g', -1, 64))
	}
	kv := map[string]string{
		"w2":                    strconv.FormatFloat(cfg.W2, 'g', -1, 64),
		"virtual_games":         strconv.Itoa(cfg.VirtualGames),
		"max_iterations":        strconv.Itoa(cfg.MaxIterations),
		"verbose":               strconv.FormatBool(cfg.Verbose),
		"tune_holdout_fraction": strconv.FormatFloat(cfg.TuneHoldoutFraction, 'g', -1, 64),
		"tune_candidates":       strings.Join(cands, ","),
	}
	for k, v := range kv {
		if _, err := d.sql.Exec(
			"INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", k, v); err != nil {
			return err
		}
	}
	return nil
}
