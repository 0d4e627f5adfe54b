package whr

import "math"

// PlayerDay is one node in a player's trajectory: the latent rating r (in
// nats) for a single time step. It buckets the games it participates in by
// outcome and caches their likelihood terms for the duration of one Newton
// step.
type PlayerDay struct {
	player      *Player
	timeStep    int
	isFirstDay  bool
	r           float64
	uncertainty float64

	wonGames  []*Game
	drawGames []*Game
	lostGames []*Game

	wonTerms  []gameTerm
	drawTerms []gameTerm
	lostTerms []gameTerm

	wonTermsReady  bool
	drawTermsReady bool
	lostTermsReady bool
}

func newPlayerDay(player *Player, timeStep int) *PlayerDay {
	return &PlayerDay{player: player, timeStep: timeStep}
}

func (d *PlayerDay) TimeStep() int        { return d.timeStep }
func (d *PlayerDay) R() float64           { return d.r }
func (d *PlayerDay) SetR(r float64)       { d.r = r }
func (d *PlayerDay) Uncertainty() float64 { return d.uncertainty }

func (d *PlayerDay) SetGamma(gamma float64) { d.r = math.Log(gamma) }
func (d *PlayerDay) Gamma() float64         { return math.Exp(d.r) }
func (d *PlayerDay) SetElo(elo float64)     { d.r = elo * (math.Ln10 / 400) }
func (d *PlayerDay) Elo() float64           { return d.r * (400 / math.Ln10) }

func (d *PlayerDay) clearGameTermsCache() {
	d.wonTerms = d.wonTerms[:0]
	d.drawTerms = d.drawTerms[:0]
	d.lostTerms = d.lostTerms[:0]
	d.wonTermsReady = false
	d.drawTermsReady = false
	d.lostTermsReady = false
}

func (d *PlayerDay) computeWonGameTerms() {
	if d.wonTermsReady {
		return
	}
	d.wonTermsReady = true
	d.wonTerms = d.wonTerms[:0]
	for _, g := range d.wonGames {
		otherGamma := g.opponentsAdjustedGamma(d.player)
		d.wonTerms = append(d.wonTerms, gameTerm{1, 0, 1, otherGamma})
	}
}

func (d *PlayerDay) computeDrawGameTerms() {
	if d.drawTermsReady {
		return
	}
	d.drawTermsReady = true
	d.drawTerms = d.drawTerms[:0]
	for _, g := range d.drawGames {
		otherGamma := g.opponentsAdjustedGamma(d.player)
		d.drawTerms = append(d.drawTerms, gameTerm{0.5, 0.5 * otherGamma, 1, otherGamma})
	}
	if d.isFirstDay {
		// Virtual draws against a unit-strength phantom anchor new players.
		for i := 0; i < d.player.virtualGames; i++ {
			d.drawTerms = append(d.drawTerms, gameTerm{0.5, 0.5, 1, 1})
		}
	}
}

func (d *PlayerDay) computeLostGameTerms() {
	if d.lostTermsReady {
		return
	}
	d.lostTermsReady = true
	d.lostTerms = d.lostTerms[:0]
	for _, g := range d.lostGames {
		otherGamma := g.opponentsAdjustedGamma(d.player)
		d.lostTerms = append(d.lostTerms, gameTerm{0, otherGamma, 1, otherGamma})
	}
}

func (d *PlayerDay) computeGameTerms() {
	d.computeWonGameTerms()
	d.computeDrawGameTerms()
	d.computeLostGameTerms()
}

// logLikelihoodSecondDerivative is d²L/dr² of this day's game log-likelihood
// at the current r.
func (d *PlayerDay) logLikelihoodSecondDerivative() float64 {
	sum := 0.0
	gamma := d.Gamma()
	d.computeGameTerms()
	for _, terms := range [][]gameTerm{d.wonTerms, d.drawTerms, d.lostTerms} {
		for _, t := range terms {
			den := t.c*gamma + t.d
			sum += (t.c * t.d) / (den * den)
		}
	}
	return -gamma * sum
}

// logLikelihoodDerivative is dL/dr at the current r. Won games count 1,
// draws (including virtual ones) count a half.
func (d *PlayerDay) logLikelihoodDerivative() float64 {
	tally := 0.0
	gamma := d.Gamma()
	d.computeGameTerms()
	for _, terms := range [][]gameTerm{d.wonTerms, d.drawTerms, d.lostTerms} {
		for _, t := range terms {
			tally += t.c / (t.c*gamma + t.d)
		}
	}
	return float64(len(d.wonTerms)) + 0.5*float64(len(d.drawTerms)) - gamma*tally
}

func (d *PlayerDay) logLikelihood() float64 {
	tally := 0.0
	gamma := d.Gamma()
	d.computeGameTerms()
	for _, t := range d.wonTerms {
		tally += math.Log(t.a * gamma)
		tally -= math.Log(t.c*gamma + t.d)
	}
	for _, t := range d.drawTerms {
		tally += math.Log(t.a*2*gamma) * 0.5
		tally += math.Log(t.b*2) * 0.5
		tally -= math.Log(t.c*gamma + t.d)
	}
	for _, t := range d.lostTerms {
		tally += math.Log(t.b)
		tally -= math.Log(t.c*gamma + t.d)
	}
	return tally
}

func (d *PlayerDay) addGame(g *Game) {
	switch {
	case g.winner == Draw:
		d.drawGames = append(d.drawGames, g)
	case (g.winner == White && g.white == d.player) || (g.winner == Black && g.black == d.player):
		d.wonGames = append(d.wonGames, g)
	default:
		d.lostGames = append(d.lostGames, g)
	}
}

// updateBy1DNewton applies one unclamped Newton step to this day's rating.
// Used only for single-day trajectories.
func (d *PlayerDay) updateBy1DNewton() {
	dlogp := d.logLikelihoodDerivative()
	d2logp := d.logLikelihoodSecondDerivative()
	d.r -= dlogp / d2logp
}
