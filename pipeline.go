// Package avscene detects scene boundaries in a video and cuts it into
// one clip per scene.
//
// The data flow is: video source -> frame store -> boundary detectors ->
// aggregated boundary result -> segmenter -> clips.
package avscene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avscene/aggregator"
	"github.com/xaionaro-go/avscene/avclip"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/eventmodel"
	"github.com/xaionaro-go/avscene/frameexporter"
	"github.com/xaionaro-go/avscene/framestore"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/segmenter"
	"github.com/xaionaro-go/avscene/videosource"
)

type Config struct {
	// Source is a local path, an "s3://bucket/key" URL or any URL
	// readable by libav.
	Source    string
	OutputDir string

	Fetch      videosource.Config
	FrameStore framestore.Config
	Detection  aggregator.Config

	// CropWith is the name of the detector whose signal is used to cut
	// the video, or the name of a merge policy ("union", "intersection",
	// "majority") to combine all the signals.
	CropWith      string
	SegmentPolicy segmenter.Policy
	Clip          avclip.Config

	// DetectOnly stops the pipeline after the detection.
	DetectOnly bool

	// ExportFramesDir, if set, is where every frame is written as an image.
	ExportFramesDir string
	ExportFrames    frameexporter.Config

	// Model, if set, is run on the video after segmentation.
	Model     eventmodel.Name
	ModelPath string

	// UploadTo, if set, is an "s3://bucket/prefix" URL to upload the
	// clips to.
	UploadTo string
}

func DefaultConfig() Config {
	return Config{
		Fetch:         videosource.DefaultConfig(),
		FrameStore:    framestore.DefaultConfig(),
		Detection:     aggregator.DefaultConfig(),
		CropWith:      string(boundary.DetectorNameLuminance),
		SegmentPolicy: segmenter.PolicyDropOuter,
		Clip:          avclip.DefaultConfig(),
		ExportFrames:  frameexporter.DefaultConfig(),
	}
}

type Report struct {
	SourcePath     string               `json:"source_path"`
	Metadata       framestore.Metadata  `json:"metadata"`
	Result         *boundary.Result     `json:"result,omitempty"`
	CropWith       string               `json:"crop_with,omitempty"`
	Segments       []segmenter.Segment  `json:"segments,omitempty"`
	Clips          []string             `json:"clips,omitempty"`
	ExportedFrames []string             `json:"exported_frames,omitempty"`
	Model          *eventmodel.Info     `json:"model,omitempty"`
	Intervals      eventmodel.Intervals `json:"intervals,omitempty"`
	Uploaded       []string             `json:"uploaded,omitempty"`

	// DetectorErrors are the failures of the detectors that did not
	// prevent the run from completing.
	DetectorErrors []string `json:"detector_errors,omitempty"`
}

type Pipeline struct {
	Config Config

	// ClipWriter writes the clips; avclip.Writer by default.
	ClipWriter segmenter.ClipWriter
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		Config:     cfg,
		ClipWriter: avclip.New(cfg.Clip),
	}
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s -> %s)", p.Config.Source, p.Config.OutputDir)
}

// SelectSignal returns the signal used to cut the video.
func SelectSignal(
	result *boundary.Result,
	cropWith string,
) (boundary.Signal, error) {
	if policy, err := boundary.ParseMergePolicy(cropWith); err == nil {
		return result.Merge(policy)
	}
	signal, ok := result.Get(boundary.DetectorName(cropWith))
	if !ok {
		return nil, fmt.Errorf("there is no signal of detector '%s' (available: %v)", cropWith, result.Names())
	}
	return signal, nil
}

// Run executes the whole pipeline. On error the returned report contains
// whatever was produced before the failure.
func (p *Pipeline) Run(ctx context.Context) (_ret *Report, _err error) {
	logger.Debugf(ctx, "Run: %s", p)
	defer func() { logger.Debugf(ctx, "/Run: %s: %v", p, _err) }()
	cfg := p.Config
	ctx = belt.WithField(ctx, "source", cfg.Source)

	report := &Report{}
	sourcePath, err := videosource.Fetch(ctx, cfg.Source, cfg.Fetch)
	if err != nil {
		return report, fmt.Errorf("unable to acquire the video '%s': %w", cfg.Source, err)
	}
	report.SourcePath = sourcePath

	store, err := framestore.Open(ctx, sourcePath, cfg.FrameStore)
	if err != nil {
		return report, fmt.Errorf("unable to decode '%s': %w", sourcePath, err)
	}
	report.Metadata = store.Metadata()
	logger.Infof(ctx, "decoded %s", report.Metadata)

	result, detectErr := aggregator.Aggregate(ctx, store, sourcePath, cfg.Detection)
	report.Result = result
	if detectErr != nil {
		if result == nil || len(result.Signals) == 0 {
			return report, fmt.Errorf("unable to detect the scene boundaries: %w", detectErr)
		}
		logger.Warnf(ctx, "some detectors failed, continuing with the rest: %v", detectErr)
		report.DetectorErrors = detectorErrors(detectErr)
	}
	for _, name := range result.Names() {
		logger.Infof(ctx, "%s: boundaries at %v", name, result.Signals[name].Indices())
	}

	if cfg.ExportFramesDir != "" {
		report.ExportedFrames, err = frameexporter.Export(ctx, store, cfg.ExportFramesDir, cfg.ExportFrames)
		if err != nil {
			return report, fmt.Errorf("unable to export the frames: %w", err)
		}
	}

	if cfg.DetectOnly {
		return report, nil
	}

	signal, err := SelectSignal(result, cfg.CropWith)
	if err != nil {
		return report, errors.Join(err, detectErr)
	}
	report.CropWith = cfg.CropWith

	seg := segmenter.New(p.ClipWriter, cfg.SegmentPolicy)
	clips, err := seg.Plan(sourcePath, signal, cfg.OutputDir)
	if err != nil {
		return report, fmt.Errorf("unable to plan the segments: %w", err)
	}
	for _, clip := range clips {
		report.Segments = append(report.Segments, clip.Segment)
	}
	report.Clips, err = seg.Segment(ctx, sourcePath, signal, cfg.OutputDir)
	if err != nil {
		return report, fmt.Errorf("unable to cut the video: %w", err)
	}
	logger.Infof(ctx, "wrote %d clips into '%s'", len(report.Clips), cfg.OutputDir)

	if cfg.Model != "" {
		if err := p.predict(ctx, report, store); err != nil {
			return report, err
		}
	}

	if cfg.UploadTo != "" {
		report.Uploaded, err = videosource.Upload(ctx, report.Clips, cfg.UploadTo, cfg.Fetch.S3)
		if err != nil {
			return report, fmt.Errorf("unable to upload the clips: %w", err)
		}
	}
	return report, nil
}

func detectorErrors(err error) []string {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	result := make([]string, 0, len(errs))
	for _, err := range errs {
		result = append(result, err.Error())
	}
	return result
}

func (p *Pipeline) predict(
	ctx context.Context,
	report *Report,
	store *framestore.Store,
) error {
	defer metrics.ObserveStage(metrics.StagePredict, time.Now())

	model, err := eventmodel.New(p.Config.Model)
	if err != nil {
		return err
	}
	info := model.Info()
	report.Model = &info
	if !info.Functional {
		logger.Warnf(ctx, "model %s is not functional, its predictions are placeholders", model)
	}
	if err := model.Load(ctx, p.Config.ModelPath); err != nil {
		return err
	}
	report.Intervals, err = model.Predict(ctx, eventmodel.Input{
		VideoPath: report.SourcePath,
		Frames:    store,
		FrameRate: store.Metadata().FrameRate,
	})
	if err != nil {
		return err
	}
	return nil
}
