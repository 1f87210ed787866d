package predictor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trainingEpochs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_training_epochs_total",
		Help: "Total number of completed training epochs",
	})

	trainingLoss = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predictor_training_loss",
		Help: "Binary cross-entropy of the most recent epoch",
	}, []string{"split"})

	learningRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictor_learning_rate",
		Help: "Current optimizer learning rate",
	})

	inferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictor_inference_duration_seconds",
		Help:    "Time spent on a single match inference",
		Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
	})

	inferenceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictor_inference_total",
		Help: "Match inferences by outcome",
	}, []string{"result"})

	modelSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictor_model_swaps_total",
		Help: "Number of times the serving artifact was replaced",
	})
)
