// Package metrics exposes Prometheus metrics for the streaming pipeline,
// fed by the event bus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milady-ai/streamnode/internal/events"
)

var (
	pipelineUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamnode",
		Subsystem: "pipeline",
		Name:      "up",
		Help:      "Whether the encoder pipeline is live",
	})

	framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "streamnode",
		Subsystem: "pipeline",
		Name:      "frames_received_total",
		Help:      "Frames ingested over the HTTP frame endpoint",
	})

	frameBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "streamnode",
		Subsystem: "pipeline",
		Name:      "frame_bytes_total",
		Help:      "Total bytes ingested over the HTTP frame endpoint",
	})

	speechTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamnode",
		Subsystem: "voice",
		Name:      "speech_total",
		Help:      "Narration utterances by outcome",
	}, []string{"outcome"})

	volumeLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamnode",
		Subsystem: "pipeline",
		Name:      "volume",
		Help:      "Current audio volume 0-100",
	})
)

// Wire subscribes the exported metrics to the event bus.
func Wire(bus *events.Bus) {
	bus.Subscribe(func(e events.PipelineStartedEvent) {
		pipelineUp.Set(1)
	})
	bus.Subscribe(func(e events.PipelineStoppedEvent) {
		pipelineUp.Set(0)
	})
	bus.Subscribe(func(e events.FrameReceivedEvent) {
		framesReceived.Inc()
		frameBytes.Add(float64(e.Bytes))
	})
	bus.Subscribe(func(e events.VolumeChangedEvent) {
		if e.Muted {
			volumeLevel.Set(0)
			return
		}
		volumeLevel.Set(float64(e.Volume))
	})
	bus.Subscribe(func(e events.SpeechFinishedEvent) {
		outcome := "ok"
		if e.Error != "" {
			outcome = "error"
		}
		speechTotal.WithLabelValues(outcome).Inc()
	})
}

// GetHandler returns the Prometheus scrape handler.
func GetHandler() http.Handler {
	return promhttp.Handler()
}
