package bayesian

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Optimizer performs basic Bayesian optimization using a Gaussian process
// and the Expected Improvement acquisition function. It treats every
// AddSample as a maximization observation: callers that want to minimize a
// cost (e.g. temperature overshoot) should negate it before recording.
type Optimizer struct {
	gp         *GaussianProcess
	bounds     [][2]float64
	candidates int
	rng        *rand.Rand
	bestY      float64
	bestX      []float64
	samples    int

	explorationWeight float64
	lenScales         []float64
	noiseLevel        float64
	lock              sync.Mutex
}

// NewOptimizer creates a new optimizer for the given bounds.
func NewOptimizer(bounds [][2]float64) *Optimizer {
	dim := len(bounds)

	lenScales := make([]float64, dim)
	for i, bound := range bounds {
		lenScales[i] = (bound[1] - bound[0]) * 0.1
	}

	return &Optimizer{
		gp:                NewGaussianProcess(1.0, 1e-6),
		bounds:            bounds,
		candidates:        100,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		bestY:             math.Inf(-1),
		bestX:             make([]float64, dim),
		samples:           0,
		explorationWeight: 0.01,
		lenScales:         lenScales,
		noiseLevel:        1e-5,
	}
}

// ConfigureOptimizer sets optimizer hyperparameters.
func (o *Optimizer) ConfigureOptimizer(candidates int, explorationWeight float64, noiseLevel float64) {
	o.lock.Lock()
	defer o.lock.Unlock()

	if candidates > 0 {
		o.candidates = candidates
	}
	if explorationWeight > 0 {
		o.explorationWeight = explorationWeight
	}
	if noiseLevel > 0 {
		o.noiseLevel = noiseLevel
		o.gp.SetNoise(noiseLevel)
	}
}

// SetLengthScales sets custom length scales for each dimension.
func (o *Optimizer) SetLengthScales(lenScales []float64) error {
	o.lock.Lock()
	defer o.lock.Unlock()

	if len(lenScales) != len(o.bounds) {
		return fmt.Errorf("length scales dimension mismatch: got %d, expected %d",
			len(lenScales), len(o.bounds))
	}

	for i, scale := range lenScales {
		if scale <= 0 {
			return fmt.Errorf("length scale must be positive: dimension %d has value %f", i, scale)
		}
		o.lenScales[i] = scale
	}

	o.gp.SetLengthScales(o.lenScales)
	return nil
}

// AddSample records the observation of value y at position x.
func (o *Optimizer) AddSample(x []float64, y float64) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.gp.AddSample(x, y)
	o.samples++

	if y > o.bestY {
		o.bestY = y
		o.bestX = append([]float64{}, x...)
	}

	// Start with more exploration, then shift toward exploitation.
	if o.samples > 10 {
		o.explorationWeight = math.Max(0.005, o.explorationWeight*0.95)
	}
}

// Suggest returns the next point to evaluate based on expected improvement.
func (o *Optimizer) Suggest() []float64 {
	o.lock.Lock()
	defer o.lock.Unlock()

	dim := len(o.bounds)

	if len(o.gp.x) == 0 {
		mid := make([]float64, dim)
		for i, b := range o.bounds {
			mid[i] = (b[0] + b[1]) / 2
		}
		return mid
	} else if len(o.gp.x) < dim+1 {
		// Corner-sampling for the first dim+1 observations.
		point := make([]float64, dim)
		for j, b := range o.bounds {
			if (len(o.gp.x) & (1 << j)) != 0 {
				point[j] = b[1]
			} else {
				point[j] = b[0]
			}
		}
		return point
	}

	candidates := generateLatinHypercubeSamples(o.candidates, o.bounds, o.rng)

	bestEI := -math.MaxFloat64
	bestPoint := make([]float64, dim)

	for _, p := range candidates {
		mean, variance := o.gp.Predict(p)
		ei := expectedImprovementWithExploration(mean, math.Sqrt(variance), o.bestY, o.explorationWeight)
		if ei > bestEI {
			bestEI = ei
			copy(bestPoint, p)
		}
	}

	return bestPoint
}

// expectedImprovementWithExploration calculates expected improvement with an exploration term.
func expectedImprovementWithExploration(mean, std, best, xi float64) float64 {
	if std <= 0 {
		return 0
	}

	improvement := mean - best - xi
	z := improvement / std
	normal := distuv.UnitNormal

	return improvement*normal.CDF(z) + std*normal.Prob(z)
}

// expectedImprovement is the classic expected improvement without an exploration term.
func expectedImprovement(mean, std, best float64) float64 {
	return expectedImprovementWithExploration(mean, std, best, 0.0)
}

// generateLatinHypercubeSamples creates a Latin Hypercube sample of the parameter space,
// giving better coverage than pure random sampling.
func generateLatinHypercubeSamples(n int, bounds [][2]float64, rng *rand.Rand) [][]float64 {
	dim := len(bounds)
	result := make([][]float64, n)

	for i := 0; i < n; i++ {
		result[i] = make([]float64, dim)
	}

	for j := 0; j < dim; j++ {
		spacing := make([]float64, n)
		for i := 0; i < n; i++ {
			spacing[i] = float64(i) / float64(n)
		}

		for i := n - 1; i > 0; i-- {
			k := rng.Intn(i + 1)
			spacing[i], spacing[k] = spacing[k], spacing[i]
		}

		min, max := bounds[j][0], bounds[j][1]
		for i := 0; i < n; i++ {
			jitter := rng.Float64() / float64(n)
			result[i][j] = min + (spacing[i]+jitter)*(max-min)
		}
	}

	return result
}

// GetBestSolution returns the best solution found so far.
func (o *Optimizer) GetBestSolution() ([]float64, float64) {
	o.lock.Lock()
	defer o.lock.Unlock()

	bestX := make([]float64, len(o.bestX))
	copy(bestX, o.bestX)

	return bestX, o.bestY
}

// GetNumSamples returns the number of samples collected so far.
func (o *Optimizer) GetNumSamples() int {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.samples
}
