package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Observer publishes training progress as Prometheus collectors.
type Observer struct {
	Steps        prometheus.Counter
	TrainLoss    prometheus.Gauge
	TestAccuracy *prometheus.GaugeVec
}

// NewObserver builds and registers the collectors.
func NewObserver() *Observer {
	o := &Observer{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sparsenet",
			Name:      "train_steps_total",
		}),
		TrainLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sparsenet",
			Name:      "train_loss",
		}),
		TestAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sparsenet",
			Name:      "test_accuracy",
		}, []string{"noise"}),
	}
	prometheus.MustRegister(o.Steps, o.TrainLoss, o.TestAccuracy)
	return o
}

// Step records one completed training step.
func (o *Observer) Step(loss float64) {
	if o == nil {
		return
	}
	o.Steps.Inc()
	o.TrainLoss.Set(loss)
}

// Accuracy records an evaluation result for a noise level.
func (o *Observer) Accuracy(noise, accuracy float64) {
	if o == nil {
		return
	}
	o.TestAccuracy.WithLabelValues(fmt.Sprintf("%.2f", noise)).Set(accuracy)
}

// Serve exposes /metrics on the given port in the background.
func Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Int("port", port).Msg("metrics server stopped")
		}
	}()
}
