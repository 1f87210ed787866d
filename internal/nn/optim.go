package nn

import "math"

// Adam is the Adam optimizer with bias correction folded into the step
// size, lr_t = lr * sqrt(1-b2^t) / (1-b1^t).
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	t    int
	m, v map[*Param][]float64
}

// NewAdam returns an optimizer with the usual moment decay rates.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:      lr,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-7,
		m:       make(map[*Param][]float64),
		v:       make(map[*Param][]float64),
	}
}

// Step applies one update from the current gradients.
func (a *Adam) Step(params []*Param) {
	a.t++
	t := float64(a.t)
	lrT := a.LR * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))
	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			a.m[p] = m
			a.v[p] = make([]float64, len(p.Value))
		}
		v := a.v[p]
		for i, g := range p.Grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			p.Value[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
}

// Iterations returns the number of steps taken.
func (a *Adam) Iterations() int { return a.t }

const probClip = 1e-7

// BinaryCrossEntropy is the mean log loss of probabilities p against 0/1
// labels y, with p clipped to [1e-7, 1-1e-7].
func BinaryCrossEntropy(p, y []float64) float64 {
	if len(p) == 0 {
		return 0
	}
	sum := 0.0
	for i, pi := range p {
		pi = math.Min(math.Max(pi, probClip), 1-probClip)
		sum += -(y[i]*math.Log(pi) + (1-y[i])*math.Log(1-pi))
	}
	return sum / float64(len(p))
}

// LogitGrad is dLoss/dLogit of mean binary cross-entropy through a
// sigmoid output: (p - y) / n.
func LogitGrad(p, y []float64) *Matrix {
	g := NewMatrix(len(p), 1)
	n := float64(len(p))
	for i := range p {
		g.Data[i] = (p[i] - y[i]) / n
	}
	return g
}

// Accuracy is the fraction of rows where p > threshold agrees with y.
func Accuracy(p, y []float64, threshold float64) float64 {
	if len(p) == 0 {
		return 0
	}
	hits := 0
	for i, pi := range p {
		pred := 0.0
		if pi > threshold {
			pred = 1
		}
		if pred == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(p))
}
