package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// MLPConfig describes a binary classifier: each hidden width becomes
// Dense(ReLU) -> BatchNorm -> Dropout, followed by a single linear output
// unit whose sigmoid is the positive-class probability.
type MLPConfig struct {
	Input       int
	Hidden      []int
	DropoutRate float64
	BNMomentum  float64
	BNEpsilon   float64
	Seed        int64
}

// Network is a sequential stack of layers producing one logit per row.
type Network struct {
	InputWidth int
	Layers     []Layer
}

// NewMLP builds and initializes a network. Weights and dropout masks are
// drawn from generators derived from cfg.Seed.
func NewMLP(cfg MLPConfig) *Network {
	initRNG := rand.New(rand.NewSource(cfg.Seed))
	net := &Network{InputWidth: cfg.Input}
	in := cfg.Input
	for i, h := range cfg.Hidden {
		net.Layers = append(net.Layers,
			NewDense(in, h, ActivationReLU, initRNG),
			NewBatchNorm(h, cfg.BNMomentum, cfg.BNEpsilon),
			NewDropout(cfg.DropoutRate, rand.New(rand.NewSource(cfg.Seed+int64(i)+1))),
		)
		in = h
	}
	net.Layers = append(net.Layers, NewDense(in, 1, ActivationLinear, initRNG))
	return net
}

// Forward returns the logits of x, caching activations for Backward.
func (n *Network) Forward(x *Matrix, training bool) *Matrix {
	for _, l := range n.Layers {
		x = l.Forward(x, training)
	}
	return x
}

// Backward propagates dLoss/dLogits through every layer.
func (n *Network) Backward(grad *Matrix) {
	for i := len(n.Layers) - 1; i >= 0; i-- {
		grad = n.Layers[i].Backward(grad)
	}
}

// Params returns all trainable parameters in layer order.
func (n *Network) Params() []*Param {
	var out []*Param
	for _, l := range n.Layers {
		out = append(out, l.Params()...)
	}
	return out
}

// PredictProba returns the sigmoid output for every row of x. It only
// reads network state.
func (n *Network) PredictProba(x *Matrix) ([]float64, error) {
	if x.Cols != n.InputWidth {
		return nil, fmt.Errorf("input width %d, network expects %d", x.Cols, n.InputWidth)
	}
	for _, l := range n.Layers {
		x = l.Infer(x)
	}
	p := make([]float64, x.Rows)
	for i := range p {
		p[i] = Sigmoid(x.At(i, 0))
	}
	return p, nil
}

// Spec captures architecture and all parameter values.
func (n *Network) Spec() NetworkSpec {
	s := NetworkSpec{InputWidth: n.InputWidth, Layers: make([]LayerSpec, len(n.Layers))}
	for i, l := range n.Layers {
		s.Layers[i] = l.Spec()
	}
	return s
}

// Restore copies parameter values from a spec of the same architecture.
func (n *Network) Restore(s NetworkSpec) error {
	if len(s.Layers) != len(n.Layers) {
		return fmt.Errorf("restore: %d layers, network has %d", len(s.Layers), len(n.Layers))
	}
	for i, l := range n.Layers {
		ls := s.Layers[i]
		if ls.Type != l.Spec().Type {
			return fmt.Errorf("restore: layer %d is %s, spec has %s", i, l.Spec().Type, ls.Type)
		}
		switch layer := l.(type) {
		case *Dense:
			if len(ls.Kernel) != len(layer.W.Value) || len(ls.Bias) != len(layer.B.Value) {
				return fmt.Errorf("restore: layer %d shape mismatch", i)
			}
			copy(layer.W.Value, ls.Kernel)
			copy(layer.B.Value, ls.Bias)
		case *BatchNorm:
			if len(ls.Gamma) != layer.Width {
				return fmt.Errorf("restore: layer %d shape mismatch", i)
			}
			copy(layer.Gamma.Value, ls.Gamma)
			copy(layer.Beta.Value, ls.Beta)
			copy(layer.MovingMean, ls.MovingMean)
			copy(layer.MovingVar, ls.MovingVar)
		}
	}
	return nil
}

// Sigmoid is the logistic function, clamped to avoid overflow.
func Sigmoid(z float64) float64 {
	if z > 20 {
		z = 20
	} else if z < -20 {
		z = -20
	}
	return 1 / (1 + math.Exp(-z))
}
