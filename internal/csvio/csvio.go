// Package csvio reads game archives from CSV files with the layout
// black,white,winner,time_step[,handicap]. Blank lines and lines starting
// with '#' are skipped.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"whr-rank/internal/whr"
)

// ReadGames parses a game archive from r.
func ReadGames(r io.Reader) ([]whr.GameRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // handicap column is optional
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var games []whr.GameRecord
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ = cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("line %d: want at least 4 fields, got %d", line, len(rec))
		}
		g := whr.GameRecord{
			Black:  strings.TrimSpace(rec[0]),
			White:  strings.TrimSpace(rec[1]),
			Winner: strings.ToUpper(strings.TrimSpace(rec[2])),
		}
		g.TimeStep, err = strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("line %d: time step: %w", line, err)
		}
		if len(rec) >= 5 && strings.TrimSpace(rec[4]) != "" {
			g.Handicap, err = strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: handicap: %w", line, err)
			}
		}
		games = append(games, g)
	}
	return games, nil
}

// ReadGamesFile opens path and parses it with ReadGames.
func ReadGamesFile(path string) ([]whr.GameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGames(f)
}
