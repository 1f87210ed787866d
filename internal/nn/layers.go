package nn

import (
	"math"
	"math/rand"
)

// Activation names.
const (
	ActivationLinear = "linear"
	ActivationReLU   = "relu"
)

// Param is a trainable tensor and its gradient from the last backward pass.
type Param struct {
	Name  string
	Value []float64
	Grad  []float64
}

func newParam(name string, n int) *Param {
	return &Param{Name: name, Value: make([]float64, n), Grad: make([]float64, n)}
}

// Layer is one stage of a Network.
type Layer interface {
	// Forward runs a training or evaluation pass and caches what Backward needs.
	Forward(x *Matrix, training bool) *Matrix
	// Backward takes dLoss/dOutput and returns dLoss/dInput, filling Params' Grad.
	Backward(grad *Matrix) *Matrix
	// Infer runs an evaluation pass without touching any layer state.
	Infer(x *Matrix) *Matrix
	Params() []*Param
	Spec() LayerSpec
}

// Dense is a fully connected layer, y = act(xW + b).
type Dense struct {
	In, Out    int
	Activation string
	W, B       *Param

	x, z *Matrix
}

// NewDense creates a dense layer with He-uniform weights and zero bias.
func NewDense(in, out int, activation string, rng *rand.Rand) *Dense {
	d := &Dense{
		In:         in,
		Out:        out,
		Activation: activation,
		W:          newParam("kernel", in*out),
		B:          newParam("bias", out),
	}
	limit := math.Sqrt(6 / float64(in))
	for i := range d.W.Value {
		d.W.Value[i] = (rng.Float64()*2 - 1) * limit
	}
	return d
}

func (d *Dense) affine(x *Matrix) *Matrix {
	z := NewMatrix(x.Rows, d.Out)
	for r := 0; r < x.Rows; r++ {
		xr := x.Row(r)
		zr := z.Row(r)
		copy(zr, d.B.Value)
		for i, xv := range xr {
			if xv == 0 {
				continue
			}
			w := d.W.Value[i*d.Out : (i+1)*d.Out]
			for j, wv := range w {
				zr[j] += xv * wv
			}
		}
	}
	return z
}

func (d *Dense) activate(z *Matrix) *Matrix {
	if d.Activation != ActivationReLU {
		return z
	}
	a := NewMatrix(z.Rows, z.Cols)
	for i, v := range z.Data {
		if v > 0 {
			a.Data[i] = v
		}
	}
	return a
}

func (d *Dense) Forward(x *Matrix, _ bool) *Matrix {
	d.x = x
	d.z = d.affine(x)
	return d.activate(d.z)
}

func (d *Dense) Infer(x *Matrix) *Matrix {
	return d.activate(d.affine(x))
}

func (d *Dense) Backward(grad *Matrix) *Matrix {
	dz := grad
	if d.Activation == ActivationReLU {
		dz = NewMatrix(grad.Rows, grad.Cols)
		for i, g := range grad.Data {
			if d.z.Data[i] > 0 {
				dz.Data[i] = g
			}
		}
	}

	for i := range d.W.Grad {
		d.W.Grad[i] = 0
	}
	for j := range d.B.Grad {
		d.B.Grad[j] = 0
	}
	dx := NewMatrix(dz.Rows, d.In)
	for r := 0; r < dz.Rows; r++ {
		xr := d.x.Row(r)
		dzr := dz.Row(r)
		dxr := dx.Row(r)
		for j, g := range dzr {
			d.B.Grad[j] += g
		}
		for i, xv := range xr {
			w := d.W.Value[i*d.Out : (i+1)*d.Out]
			wg := d.W.Grad[i*d.Out : (i+1)*d.Out]
			s := 0.0
			for j, g := range dzr {
				wg[j] += xv * g
				s += g * w[j]
			}
			dxr[i] = s
		}
	}
	return dx
}

func (d *Dense) Params() []*Param { return []*Param{d.W, d.B} }

func (d *Dense) Spec() LayerSpec {
	return LayerSpec{
		Type:       LayerDense,
		In:         d.In,
		Out:        d.Out,
		Activation: d.Activation,
		Kernel:     append([]float64(nil), d.W.Value...),
		Bias:       append([]float64(nil), d.B.Value...),
	}
}

// Dropout zeroes a fraction of activations while training and rescales the
// rest (inverted dropout). It is the identity at inference.
type Dropout struct {
	Rate float64

	rng  *rand.Rand
	mask []float64
}

// NewDropout creates a dropout layer drawing masks from rng.
func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{Rate: rate, rng: rng}
}

func (d *Dropout) Forward(x *Matrix, training bool) *Matrix {
	if !training || d.Rate <= 0 {
		d.mask = nil
		return x
	}
	keep := 1 - d.Rate
	out := NewMatrix(x.Rows, x.Cols)
	d.mask = make([]float64, len(x.Data))
	for i, v := range x.Data {
		if d.rng.Float64() >= d.Rate {
			d.mask[i] = 1 / keep
			out.Data[i] = v / keep
		}
	}
	return out
}

func (d *Dropout) Infer(x *Matrix) *Matrix { return x }

func (d *Dropout) Backward(grad *Matrix) *Matrix {
	if d.mask == nil {
		return grad
	}
	dx := NewMatrix(grad.Rows, grad.Cols)
	for i, g := range grad.Data {
		dx.Data[i] = g * d.mask[i]
	}
	return dx
}

func (d *Dropout) Params() []*Param { return nil }

func (d *Dropout) Spec() LayerSpec {
	return LayerSpec{Type: LayerDropout, Rate: d.Rate}
}
