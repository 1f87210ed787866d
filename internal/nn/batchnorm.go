package nn

import "math"

// BatchNorm normalizes each feature with batch statistics while training
// and with moving averages at inference.
type BatchNorm struct {
	Width      int
	Momentum   float64
	Epsilon    float64
	Gamma      *Param
	Beta       *Param
	MovingMean []float64
	MovingVar  []float64

	xhat   *Matrix
	invStd []float64
}

// NewBatchNorm creates a batch normalization layer with gamma 1, beta 0
// and moving statistics (0, 1).
func NewBatchNorm(width int, momentum, epsilon float64) *BatchNorm {
	bn := &BatchNorm{
		Width:      width,
		Momentum:   momentum,
		Epsilon:    epsilon,
		Gamma:      newParam("gamma", width),
		Beta:       newParam("beta", width),
		MovingMean: make([]float64, width),
		MovingVar:  make([]float64, width),
	}
	for j := 0; j < width; j++ {
		bn.Gamma.Value[j] = 1
		bn.MovingVar[j] = 1
	}
	return bn
}

func (bn *BatchNorm) Forward(x *Matrix, training bool) *Matrix {
	if !training {
		return bn.Infer(x)
	}
	n := float64(x.Rows)
	mean := make([]float64, bn.Width)
	variance := make([]float64, bn.Width)
	for r := 0; r < x.Rows; r++ {
		for j, v := range x.Row(r) {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for r := 0; r < x.Rows; r++ {
		for j, v := range x.Row(r) {
			d := v - mean[j]
			variance[j] += d * d
		}
	}
	bn.invStd = make([]float64, bn.Width)
	for j := range variance {
		variance[j] /= n
		bn.invStd[j] = 1 / math.Sqrt(variance[j]+bn.Epsilon)
		bn.MovingMean[j] = bn.Momentum*bn.MovingMean[j] + (1-bn.Momentum)*mean[j]
		bn.MovingVar[j] = bn.Momentum*bn.MovingVar[j] + (1-bn.Momentum)*variance[j]
	}

	bn.xhat = NewMatrix(x.Rows, x.Cols)
	out := NewMatrix(x.Rows, x.Cols)
	for r := 0; r < x.Rows; r++ {
		xr, hr, or := x.Row(r), bn.xhat.Row(r), out.Row(r)
		for j, v := range xr {
			hr[j] = (v - mean[j]) * bn.invStd[j]
			or[j] = bn.Gamma.Value[j]*hr[j] + bn.Beta.Value[j]
		}
	}
	return out
}

func (bn *BatchNorm) Infer(x *Matrix) *Matrix {
	out := NewMatrix(x.Rows, x.Cols)
	for r := 0; r < x.Rows; r++ {
		xr, or := x.Row(r), out.Row(r)
		for j, v := range xr {
			inv := 1 / math.Sqrt(bn.MovingVar[j]+bn.Epsilon)
			or[j] = bn.Gamma.Value[j]*(v-bn.MovingMean[j])*inv + bn.Beta.Value[j]
		}
	}
	return out
}

// Backward assumes the preceding Forward ran in training mode.
func (bn *BatchNorm) Backward(grad *Matrix) *Matrix {
	n := float64(grad.Rows)
	sumDxhat := make([]float64, bn.Width)
	sumDxhatXhat := make([]float64, bn.Width)
	for j := 0; j < bn.Width; j++ {
		bn.Gamma.Grad[j] = 0
		bn.Beta.Grad[j] = 0
	}
	for r := 0; r < grad.Rows; r++ {
		gr, hr := grad.Row(r), bn.xhat.Row(r)
		for j, g := range gr {
			bn.Gamma.Grad[j] += g * hr[j]
			bn.Beta.Grad[j] += g
			dxhat := g * bn.Gamma.Value[j]
			sumDxhat[j] += dxhat
			sumDxhatXhat[j] += dxhat * hr[j]
		}
	}
	dx := NewMatrix(grad.Rows, grad.Cols)
	for r := 0; r < grad.Rows; r++ {
		gr, hr, dr := grad.Row(r), bn.xhat.Row(r), dx.Row(r)
		for j, g := range gr {
			dxhat := g * bn.Gamma.Value[j]
			dr[j] = bn.invStd[j] / n * (n*dxhat - sumDxhat[j] - hr[j]*sumDxhatXhat[j])
		}
	}
	return dx
}

func (bn *BatchNorm) Params() []*Param { return []*Param{bn.Gamma, bn.Beta} }

func (bn *BatchNorm) Spec() LayerSpec {
	return LayerSpec{
		Type:       LayerBatchNorm,
		In:         bn.Width,
		Out:        bn.Width,
		Gamma:      append([]float64(nil), bn.Gamma.Value...),
		Beta:       append([]float64(nil), bn.Beta.Value...),
		MovingMean: append([]float64(nil), bn.MovingMean...),
		MovingVar:  append([]float64(nil), bn.MovingVar...),
		Momentum:   bn.Momentum,
		Epsilon:    bn.Epsilon,
	}
}
