package bayesian

import "math"

// TickSample is one observed (severity, error, overshoot) data point from a
// sensor's tick history, collected by the caller for later offline review.
// Overshoot is the signed degrees the sensor ran past its hot threshold at
// that severity; larger magnitude is worse regardless of sign.
type TickSample struct {
	Severity  int
	Err       float64
	Overshoot float64
}

// GainRange bounds the (k_po, k_pu) search space the advisor is allowed to
// suggest, normally taken from the sensor's existing gain table for the
// severity under review.
type GainRange struct {
	MinKPOverheat, MaxKPOverheat   float64
	MinKPUnderheat, MaxKPUnderheat float64
}

// TrimAdvisor wraps an Optimizer to suggest refined PID gains from logged
// tick history. It is an offline maintenance tool: nothing in the tick path
// constructs or calls one, and Suggest never mutates a live SensorInfo.
type TrimAdvisor struct {
	opt *Optimizer
}

// NewTrimAdvisor builds an advisor whose search space is bounded by r.
func NewTrimAdvisor(r GainRange) *TrimAdvisor {
	bounds := [][2]float64{
		{r.MinKPOverheat, r.MaxKPOverheat},
		{r.MinKPUnderheat, r.MaxKPUnderheat},
	}
	return &TrimAdvisor{opt: NewOptimizer(bounds)}
}

// Suggest scores history against a grid of candidate (k_po, k_pu) pairs
// within the advisor's configured range, feeding each candidate's fitness
// into the underlying Gaussian-process optimizer as an observation, then
// asks the optimizer for the point with the best expected improvement.
//
// Fitness is the negative mean squared overshoot a candidate gain pair
// would have produced against the recorded error trace (overshoot is
// assumed roughly proportional to how far a candidate's implied correction
// diverges from the error that produced the logged overshoot). Maximizing
// fitness therefore minimizes overshoot, matching Optimizer's
// maximize-by-convention AddSample contract.
func (a *TrimAdvisor) Suggest(history []TickSample) (kpo, kpu float64) {
	if len(history) == 0 {
		mid := a.opt.Suggest()
		return mid[0], mid[1]
	}

	for _, candidate := range candidateGrid(a.opt.bounds, 5) {
		fitness := -meanSquaredResidual(history, candidate[0], candidate[1])
		a.opt.AddSample(candidate, fitness)
	}

	best := a.opt.Suggest()
	return best[0], best[1]
}

// BestKnown returns the best (k_po, k_pu) pair observed across every
// Suggest call so far, along with the negative-MSE fitness it scored.
func (a *TrimAdvisor) BestKnown() (kpo, kpu, fitness float64) {
	x, y := a.opt.GetBestSolution()
	if len(x) < 2 {
		return math.NaN(), math.NaN(), y
	}
	return x[0], x[1], y
}

func meanSquaredResidual(history []TickSample, kpo, kpu float64) float64 {
	var sum float64
	for _, s := range history {
		var predicted float64
		if s.Err < 0 {
			predicted = kpo * s.Err
		} else {
			predicted = kpu * s.Err
		}
		residual := s.Overshoot - predicted
		sum += residual * residual
	}
	return sum / float64(len(history))
}

func candidateGrid(bounds [][2]float64, steps int) [][]float64 {
	if steps < 2 {
		steps = 2
	}
	xs := linspace(bounds[0][0], bounds[0][1], steps)
	ys := linspace(bounds[1][0], bounds[1][1], steps)

	grid := make([][]float64, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			grid = append(grid, []float64{x, y})
		}
	}
	return grid
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		out[i] = lo + step*float64(i)
	}
	return out
}
