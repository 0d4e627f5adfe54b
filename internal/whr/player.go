package whr

import (
	"fmt"
	"math"
)

// Player is one rated entity: an ordered trajectory of PlayerDays, strictly
// increasing in time step, tied together by a Brownian-motion prior on r.
type Player struct {
	name         string
	w2           float64 // prior variance rate, natural-log scale
	virtualGames int
	days         []*PlayerDay
}

func newPlayer(name string, w2 float64, virtualGames int) *Player {
	ln10over400 := math.Ln10 / 400
	return &Player{
		name:         name,
		w2:           w2 * ln10over400 * ln10over400,
		virtualGames: virtualGames,
	}
}

func (p *Player) Name() string       { return p.name }
func (p *Player) Days() []*PlayerDay { return p.days }

func (p *Player) String() string {
	return fmt.Sprintf("Player:(%s)", p.name)
}

// LogLikelihood is the joint log-posterior of this player's trajectory: the
// per-day game likelihoods plus the log of the Gaussian transition densities
// to each neighboring day. A day whose combined transition densities
// underflow to zero contributes its game likelihood alone.
func (p *Player) LogLikelihood() float64 {
	sum := 0.0
	sigma2 := p.computeSigma2()
	n := len(p.days)
	for i := 0; i < n; i++ {
		prior := 0.0
		if i < n-1 {
			rd := p.days[i].r - p.days[i+1].r
			prior += math.Exp(-rd*rd/2/sigma2[i]) / math.Sqrt(2*math.Pi*sigma2[i])
		}
		if i > 0 {
			rd := p.days[i].r - p.days[i-1].r
			prior += math.Exp(-rd*rd/2/sigma2[i-1]) / math.Sqrt(2*math.Pi*sigma2[i-1])
		}
		if prior == 0 {
			sum += p.days[i].logLikelihood()
		} else {
			sum += p.days[i].logLikelihood() + math.Log(prior)
		}
	}
	return sum
}

// computeSigma2 returns the prior variance between consecutive days:
// sigma2[i] = |t_{i+1} - t_i| * w2.
func (p *Player) computeSigma2() []float64 {
	n := len(p.days)
	res := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		res[i] = math.Abs(float64(p.days[i+1].timeStep-p.days[i].timeStep)) * p.w2
	}
	return res
}

// hessian assembles the three diagonals of the tridiagonal Hessian of the
// log-posterior. sub[0] is zero (there is no H[0][-1]). The -0.001 on the
// diagonal is load-bearing damping and must stay.
func (p *Player) hessian(sigma2 []float64) (diag, sub, sup []float64) {
	n := len(p.days)
	diag = make([]float64, n)
	sub = make([]float64, n)
	sup = make([]float64, n)
	for i := 0; i < n; i++ {
		prior := 0.0
		if i < n-1 {
			prior -= 1 / sigma2[i]
			sup[i] = 1 / sigma2[i]
		}
		if i > 0 {
			prior -= 1 / sigma2[i-1]
			sub[i] = 1 / sigma2[i-1]
		}
		diag[i] = p.days[i].logLikelihoodSecondDerivative() + prior - 0.001
	}
	return diag, sub, sup
}

func (p *Player) gradient(r, sigma2 []float64) []float64 {
	n := len(p.days)
	res := make([]float64, n)
	for i, day := range p.days {
		prior := 0.0
		if i < n-1 {
			prior -= (r[i] - r[i+1]) / sigma2[i]
		}
		if i > 0 {
			prior -= (r[i] - r[i-1]) / sigma2[i-1]
		}
		res[i] = day.logLikelihoodDerivative() + prior
	}
	return res
}

// runOneNewtonIteration invalidates every day's term cache (opponents may
// have moved since the previous sweep) and applies one Newton step to the
// whole trajectory.
func (p *Player) runOneNewtonIteration() {
	for _, day := range p.days {
		day.clearGameTermsCache()
	}
	if len(p.days) == 1 {
		p.days[0].updateBy1DNewton()
	} else if len(p.days) > 1 {
		p.updateByNDimNewton()
	}
}

// updateByNDimNewton solves H*x = g with an LU factorization specialized for
// the tridiagonal form, without pivoting, and applies r -= x unclamped.
func (p *Player) updateByNDimNewton() {
	n := len(p.days)
	r := make([]float64, n)
	for i, day := range p.days {
		r[i] = day.r
	}
	sigma2 := p.computeSigma2()
	hd, hsub, hsup := p.hessian(sigma2)
	g := p.gradient(r, sigma2)

	a := make([]float64, n)
	d := make([]float64, n)
	b := make([]float64, n)
	d[0] = hd[0]
	b[0] = hsup[0]
	for i := 1; i < n; i++ {
		a[i] = hsub[i] / d[i-1]
		d[i] = hd[i] - a[i]*b[i-1]
		if i < n-1 {
			b[i] = hsup[i]
		}
	}

	y := make([]float64, n)
	y[0] = g[0]
	for i := 1; i < n; i++ {
		y[i] = g[i] - a[i]*y[i-1]
	}

	x := make([]float64, n)
	x[n-1] = y[n-1] / d[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = (y[i] - b[i]*x[i+1]) / d[i]
	}

	for i, day := range p.days {
		day.r = r[i] - x[i]
	}
}

// covarianceDiagonal computes the diagonal of -H^-1 via a two-sided LU: a
// forward sweep as in the Newton solve plus a mirrored backward sweep.
func (p *Player) covarianceDiagonal() []float64 {
	n := len(p.days)
	sigma2 := p.computeSigma2()
	hd, hsub, hsup := p.hessian(sigma2)

	a := make([]float64, n)
	d := make([]float64, n)
	b := make([]float64, n)
	d[0] = hd[0]
	if n > 1 {
		b[0] = hsup[0]
	}
	for i := 1; i < n; i++ {
		a[i] = hsub[i] / d[i-1]
		d[i] = hd[i] - a[i]*b[i-1]
		if i < n-1 {
			b[i] = hsup[i]
		}
	}

	ap := make([]float64, n)
	dp := make([]float64, n)
	bp := make([]float64, n)
	dp[n-1] = hd[n-1]
	bp[n-1] = hsub[n-1]
	for i := n - 2; i >= 0; i-- {
		ap[i] = hsup[i] / dp[i+1]
		dp[i] = hd[i] - ap[i]*bp[i+1]
		bp[i] = hsub[i]
	}

	v := make([]float64, n)
	for i := 0; i < n-1; i++ {
		v[i] = dp[i+1] / (b[i]*bp[i+1] - d[i]*dp[i+1])
	}
	v[n-1] = -1 / d[n-1]
	return v
}

// updateUncertainty stores the per-day variance of r after convergence. A
// single-day trajectory keeps its zero uncertainty: covarianceDiagonal is
// not called for n < 2.
func (p *Player) updateUncertainty() {
	if len(p.days) < 2 {
		return
	}
	for i, v := range p.covarianceDiagonal() {
		p.days[i].uncertainty = v
	}
}

// addGame appends g to this player's trajectory, reusing the last day when
// the time step matches and otherwise opening a new day seeded with the
// previous day's gamma (or 1.0 for a brand-new player).
func (p *Player) addGame(g *Game) {
	n := len(p.days)
	if n == 0 || p.days[n-1].timeStep != g.timeStep {
		day := newPlayerDay(p, g.timeStep)
		if n == 0 {
			day.isFirstDay = true
			day.SetGamma(1)
		} else {
			day.SetGamma(p.days[n-1].Gamma())
		}
		p.days = append(p.days, day)
	}
	last := p.days[len(p.days)-1]
	if g.white == p {
		g.wpd = last
	} else {
		g.bpd = last
	}
	last.addGame(g)
}
