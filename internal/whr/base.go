package whr

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// GameRecord is the host-facing shape of one game: who played black and
// white, the outcome code ("W", "B", "D"), the time step, and an optional
// handicap in elo added to black's effective strength.
type GameRecord struct {
	Black    string  `json:"black"`
	White    string  `json:"white"`
	Winner   string  `json:"winner"`
	TimeStep int     `json:"time_step"`
	Handicap float64 `json:"handicap,omitempty"`
}

// Rating is one converged point of a player's history.
type Rating struct {
	TimeStep  int     `json:"time_step"`
	Elo       float64 `json:"elo"`
	StddevElo float64 `json:"stddev_elo"`
}

// PlayerRatings pairs a player with their full rating history.
type PlayerRatings struct {
	Name    string   `json:"name"`
	History []Rating `json:"history"`
}

// Base is the registry of players and games and the driver of the
// block-coordinate Newton optimization. It is single-threaded; independent
// Base values may run on distinct goroutines.
type Base struct {
	w2           float64
	virtualGames int
	games        []*Game
	players      map[string]*Player
	playersOrder []string
}

// New creates an empty Base. w2 is the Brownian prior variance rate on the
// elo scale (300 is the conventional default); virtualGames anchors each
// player's first day with that many drawn games against a unit-gamma phantom.
func New(w2 float64, virtualGames int) *Base {
	return &Base{
		w2:           w2,
		virtualGames: virtualGames,
		players:      make(map[string]*Player),
	}
}

// playerByName is get-or-create and preserves first-seen order so sweeps are
// deterministic.
func (b *Base) playerByName(name string) *Player {
	p, ok := b.players[name]
	if !ok {
		p = newPlayer(name, b.w2, b.virtualGames)
		b.players[name] = p
		b.playersOrder = append(b.playersOrder, name)
	}
	return p
}

// Players returns the registry keyed by name.
func (b *Base) Players() map[string]*Player { return b.players }

// GameCount reports how many games have been accepted.
func (b *Base) GameCount() int { return len(b.games) }

func (b *Base) setupGame(black, white, winner string, timeStep int, handicap float64) *Game {
	if black == white {
		fmt.Fprintf(os.Stderr, "Game players cannot be equal: %s and %s\n", black, white)
		return nil
	}
	whitePlayer := b.playerByName(white)
	blackPlayer := b.playerByName(black)
	return newGame(blackPlayer, whitePlayer, winner, timeStep, handicap)
}

// CreateGame registers a single game. Self-play is rejected with a
// diagnostic and the Base is left unchanged.
func (b *Base) CreateGame(black, white, winner string, timeStep int, handicap float64) {
	if g := b.setupGame(black, white, winner, timeStep, handicap); g != nil {
		b.addGame(g)
	}
}

// CreateGames registers a batch, sorted ascending by time step so each
// player's day sequence comes out strictly increasing.
func (b *Base) CreateGames(games []GameRecord) {
	sorted := make([]GameRecord, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeStep < sorted[j].TimeStep
	})
	for _, g := range sorted {
		b.CreateGame(g.Black, g.White, g.Winner, g.TimeStep, g.Handicap)
	}
}

func (b *Base) addGame(g *Game) {
	b.games = append(b.games, g)
	g.white.addGame(g)
	g.black.addGame(g)
}

// runOneIteration sweeps players in insertion order: block Gauss-Seidel, so
// later players see already-updated earlier players.
func (b *Base) runOneIteration() {
	for _, name := range b.playersOrder {
		b.players[name].runOneNewtonIteration()
	}
}

// Iterate runs count sweeps and then refreshes every player's uncertainty.
func (b *Base) Iterate(count int) {
	for i := 0; i < count; i++ {
		b.runOneIteration()
	}
	for _, p := range b.players {
		p.updateUncertainty()
	}
}

// IterateUntilConverge sweeps until the rating fingerprint (elo rounded to
// centipoints, players visited name-sorted) has been identical for ten
// consecutive sweeps, then refreshes uncertainties and returns the sweep
// count. Callers needing a hard cap should use Iterate instead.
func (b *Base) IterateUntilConverge(verbose bool) int {
	count := 0
	bestIteration := 0
	var last []int

	sortedNames := make([]string, len(b.playersOrder))
	copy(sortedNames, b.playersOrder)
	sort.Strings(sortedNames)

	for {
		var ratings []int
		for _, name := range sortedNames {
			for _, day := range b.players[name].days {
				ratings = append(ratings, int(math.Round(day.Elo()*100)))
			}
		}
		if count > 0 {
			delta := 0
			for i := range ratings {
				d := ratings[i] - last[i]
				if d < 0 {
					d = -d
				}
				delta += d
			}
			if verbose {
				fmt.Printf("Iteration: %d, delta: %d\n", count, delta)
			}
			if delta > 0 {
				bestIteration = count
			}
			if count-bestIteration >= 10 {
				break
			}
		} else {
			bestIteration = count
		}
		last = ratings
		b.runOneIteration()
		count++
	}
	for _, p := range b.players {
		p.updateUncertainty()
	}
	return count
}

// RatingsForPlayer returns the (time step, elo, stddev elo) history for a
// player, creating an empty-history entry if the name is unknown.
func (b *Base) RatingsForPlayer(name string) []Rating {
	p := b.playerByName(name)
	res := make([]Rating, 0, len(p.days))
	for _, d := range p.days {
		res = append(res, Rating{
			TimeStep:  d.timeStep,
			Elo:       d.Elo(),
			StddevElo: math.Sqrt(d.uncertainty) * 400 / math.Ln10,
		})
	}
	return res
}

// orderedPlayers returns players with at least one day, most recent gamma
// descending.
func (b *Base) orderedPlayers() []*Player {
	players := make([]*Player, 0, len(b.players))
	for _, name := range b.playersOrder {
		if p := b.players[name]; len(p.days) > 0 {
			players = append(players, p)
		}
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].days[len(players[i].days)-1].Gamma() >
			players[j].days[len(players[j].days)-1].Gamma()
	})
	return players
}

// OrderedRatings returns every rated player's history, strongest first by
// final gamma.
func (b *Base) OrderedRatings() []PlayerRatings {
	players := b.orderedPlayers()
	res := make([]PlayerRatings, 0, len(players))
	for _, p := range players {
		res = append(res, PlayerRatings{Name: p.name, History: b.RatingsForPlayer(p.name)})
	}
	return res
}

// PrintOrderedRatings writes one line per rated player:
// name\t t0,elo0;t1,elo1;... with elo fixed to two decimals.
func (b *Base) PrintOrderedRatings(w io.Writer) {
	for _, p := range b.orderedPlayers() {
		fmt.Fprintf(w, "%s\t", p.name)
		for i, d := range p.days {
			fmt.Fprintf(w, "%d,%.2f", d.timeStep, d.Elo())
			if i < len(p.days)-1 {
				fmt.Fprint(w, ";")
			}
		}
		fmt.Fprintln(w)
	}
}

// LogLikelihood sums the per-player log-posterior over rated players.
func (b *Base) LogLikelihood() float64 {
	score := 0.0
	for _, name := range b.playersOrder {
		if p := b.players[name]; len(p.days) > 0 {
			score += p.LogLikelihood()
		}
	}
	return score
}
