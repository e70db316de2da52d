// Package metrics defines the prometheus metrics of every processing stage.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

type Stage string

const (
	StageFetch   = Stage("fetch")
	StageDecode  = Stage("decode")
	StageDetect  = Stage("detect")
	StageSegment = Stage("segment")
	StageExport  = Stage("export")
	StagePredict = Stage("predict")
	StageUpload  = Stage("upload")
)

var (
	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avscene_frames_decoded_total",
		Help: "Total number of frames decoded into frame stores",
	})

	BoundariesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avscene_boundaries_detected_total",
		Help: "Total number of scene boundaries found, by detector",
	}, []string{"detector"})

	DetectorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avscene_detector_errors_total",
		Help: "Total number of failed detector runs, by detector",
	}, []string{"detector"})

	ClipsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avscene_clips_written_total",
		Help: "Total number of segment clips written",
	})

	FramesExportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avscene_frames_exported_total",
		Help: "Total number of frames exported as images",
	})

	SourcesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avscene_sources_fetched_total",
		Help: "Total number of videos acquired, by source kind",
	}, []string{"kind"})

	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avscene_predictions_total",
		Help: "Total number of event model predictions, by model",
	}, []string{"model"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "avscene_stage_duration_seconds",
		Help:    "Duration of a processing stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})
)

// ObserveStage records the time passed since startTS as the duration of
// the stage. Usage: defer metrics.ObserveStage(metrics.StageDetect, time.Now())
func ObserveStage(stage Stage, startTS time.Time) {
	StageDuration.WithLabelValues(string(stage)).Observe(time.Since(startTS).Seconds())
}

// StageCount returns how many times the stage was observed.
func StageCount(stage Stage) uint64 {
	m, ok := StageDuration.WithLabelValues(string(stage)).(prometheus.Metric)
	if !ok {
		return 0
	}
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return 0
	}
	return out.GetHistogram().GetSampleCount()
}
