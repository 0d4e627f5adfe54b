package db

import (
	"fmt"

	"whr-rank/internal/whr"
)

// InsertGames appends a batch of games to the archive in one transaction.
func (d *DB) InsertGames(games []whr.GameRecord) (int, error) {
	tx, err := d.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO games (black, white, winner, time_step, handicap) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, g := range games {
		if _, err := stmt.Exec(g.Black, g.White, g.Winner, g.TimeStep, g.Handicap); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert game: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// LoadGames returns the full archive ordered by time step, then insertion.
func (d *DB) LoadGames() ([]whr.GameRecord, error) {
	rows, err := d.sql.Query("SELECT black, white, winner, time_step, handicap FROM games ORDER BY time_step, id")
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	defer rows.Close()

	var games []whr.GameRecord
	for rows.Next() {
		var g whr.GameRecord
		if err := rows.Scan(&g.Black, &g.White, &g.Winner, &g.TimeStep, &g.Handicap); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GameCount reports the archive size.
func (d *DB) GameCount() (int, error) {
	var n int
	if err := d.sql.QueryRow("SELECT COUNT(*) FROM games").Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}
