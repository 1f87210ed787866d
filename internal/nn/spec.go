package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Layer types as persisted.
const (
	LayerDense     = "dense"
	LayerBatchNorm = "batch_norm"
	LayerDropout   = "dropout"
)

// LayerSpec is the serializable form of one layer.
type LayerSpec struct {
	Type       string    `json:"type"`
	In         int       `json:"in,omitempty"`
	Out        int       `json:"out,omitempty"`
	Activation string    `json:"activation,omitempty"`
	Kernel     []float64 `json:"kernel,omitempty"`
	Bias       []float64 `json:"bias,omitempty"`
	Gamma      []float64 `json:"gamma,omitempty"`
	Beta       []float64 `json:"beta,omitempty"`
	MovingMean []float64 `json:"moving_mean,omitempty"`
	MovingVar  []float64 `json:"moving_variance,omitempty"`
	Momentum   float64   `json:"momentum,omitempty"`
	Epsilon    float64   `json:"epsilon,omitempty"`
	Rate       float64   `json:"rate,omitempty"`
}

// NetworkSpec is the serializable form of a Network.
type NetworkSpec struct {
	InputWidth int         `json:"input_width"`
	Layers     []LayerSpec `json:"layers"`
}

// Validate checks that layer widths chain, parameter lengths match their
// shapes, values are finite and the network ends in one output unit.
func (s NetworkSpec) Validate() error {
	if s.InputWidth <= 0 {
		return fmt.Errorf("input width %d", s.InputWidth)
	}
	width := s.InputWidth
	for i, l := range s.Layers {
		switch l.Type {
		case LayerDense:
			if l.In != width {
				return fmt.Errorf("layer %d: dense input %d, previous width %d", i, l.In, width)
			}
			if l.Out <= 0 || len(l.Kernel) != l.In*l.Out || len(l.Bias) != l.Out {
				return fmt.Errorf("layer %d: dense %dx%d has %d weights, %d biases", i, l.In, l.Out, len(l.Kernel), len(l.Bias))
			}
			if l.Activation != ActivationReLU && l.Activation != ActivationLinear {
				return fmt.Errorf("layer %d: unknown activation %q", i, l.Activation)
			}
			if err := finite(l.Kernel, l.Bias); err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
			width = l.Out
		case LayerBatchNorm:
			if l.In != width || len(l.Gamma) != width || len(l.Beta) != width ||
				len(l.MovingMean) != width || len(l.MovingVar) != width {
				return fmt.Errorf("layer %d: batch norm widths do not match %d", i, width)
			}
			if err := finite(l.Gamma, l.Beta, l.MovingMean, l.MovingVar); err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
			for _, v := range l.MovingVar {
				if v < 0 {
					return fmt.Errorf("layer %d: negative moving variance", i)
				}
			}
		case LayerDropout:
			if l.Rate < 0 || l.Rate >= 1 {
				return fmt.Errorf("layer %d: dropout rate %v", i, l.Rate)
			}
		default:
			return fmt.Errorf("layer %d: unknown type %q", i, l.Type)
		}
	}
	if width != 1 {
		return fmt.Errorf("network output width %d, want 1", width)
	}
	return nil
}

func finite(sets ...[]float64) error {
	for _, set := range sets {
		for _, v := range set {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite parameter %v", v)
			}
		}
	}
	return nil
}

// FromSpec rebuilds a network for inference from a validated spec.
func FromSpec(s NetworkSpec) (*Network, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	net := &Network{InputWidth: s.InputWidth}
	for i, l := range s.Layers {
		switch l.Type {
		case LayerDense:
			d := &Dense{In: l.In, Out: l.Out, Activation: l.Activation,
				W: newParam("kernel", l.In*l.Out), B: newParam("bias", l.Out)}
			copy(d.W.Value, l.Kernel)
			copy(d.B.Value, l.Bias)
			net.Layers = append(net.Layers, d)
		case LayerBatchNorm:
			bn := NewBatchNorm(l.In, l.Momentum, l.Epsilon)
			copy(bn.Gamma.Value, l.Gamma)
			copy(bn.Beta.Value, l.Beta)
			copy(bn.MovingMean, l.MovingMean)
			copy(bn.MovingVar, l.MovingVar)
			net.Layers = append(net.Layers, bn)
		case LayerDropout:
			net.Layers = append(net.Layers, NewDropout(l.Rate, rand.New(rand.NewSource(int64(i)))))
		}
	}
	return net, nil
}
