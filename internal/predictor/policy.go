package predictor

import "math"

// plateau tracks epochs since the monitored loss last improved.
type plateau struct {
	patience int
	best     float64
	wait     int
}

func newPlateau(patience int) *plateau {
	return &plateau{patience: patience, best: math.Inf(1)}
}

// observe records one epoch's loss. exhausted is true once patience
// epochs have passed without a strict improvement.
func (p *plateau) observe(loss float64) (improved, exhausted bool) {
	if loss < p.best {
		p.best = loss
		p.wait = 0
		return true, false
	}
	p.wait++
	return false, p.wait >= p.patience
}

func (p *plateau) reset() { p.wait = 0 }

// lrSchedule multiplies the learning rate by factor after patience stale
// epochs, never going below min.
type lrSchedule struct {
	*plateau
	factor float64
	min    float64
}

// next returns the learning rate for the following epoch.
func (s *lrSchedule) next(lr, loss float64) float64 {
	_, exhausted := s.observe(loss)
	if !exhausted || lr <= s.min {
		return lr
	}
	s.reset()
	return math.Max(lr*s.factor, s.min)
}
