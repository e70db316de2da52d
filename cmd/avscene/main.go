package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avscene"
	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/detector"
	"github.com/xaionaro-go/avscene/eventmodel"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/segmenter"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/secret"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <input path|URL|s3://bucket/key> <output dir>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	cfg := avscene.DefaultConfig()

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	metricsAddr := pflag.String("metrics-listen-addr", "", "an address to serve prometheus metrics at")

	pflag.BoolVar(&cfg.Detection.UseEdge, "use-edge", cfg.Detection.UseEdge, "run the edge change ratio detector")
	pflag.BoolVar(&cfg.Detection.UseLuminance, "use-luminance", cfg.Detection.UseLuminance, "run the luminance histogram detector")
	pflag.Float64Var(&cfg.Detection.Parameter1, "parameter1", cfg.Detection.Parameter1, "sensitivity of the luminance detector (standard deviations above the mean)")
	pflag.Float64Var(&cfg.Detection.EdgeThreshold, "edge-threshold", cfg.Detection.EdgeThreshold, "minimal edge change ratio of a cut")
	edgeBaseline := pflag.String("edge-baseline", string(cfg.Detection.EdgeBaseline), "adaptive baseline of the edge detector: sma, mama or none")
	edgeBackend := pflag.String("edge-backend", string(cfg.Detection.EdgeBackend), fmt.Sprintf("edge extraction backend, available: %v", detector.EdgeBackends()))
	pflag.BoolVar(&cfg.Detection.Concurrent, "concurrent-detectors", false, "run the detectors concurrently")

	pflag.StringVar(&cfg.CropWith, "crop-with", cfg.CropWith, fmt.Sprintf("signal to cut the video by: %s, %s, union, intersection or majority", boundary.DetectorNameEdge, boundary.DetectorNameLuminance))
	includeOuter := pflag.Bool("include-outer", false, "also write the frames before the first and after the last boundary as clips")
	pflag.Uint32Var(&cfg.FrameStore.AnalysisWidth, "analysis-width", 0, "downscale frames to this width before the detection (0 = native)")
	pflag.StringVar(&cfg.Clip.EncoderName, "encoder", cfg.Clip.EncoderName, "encoder to use if the source codec cannot be encoded")
	pflag.BoolVar(&cfg.DetectOnly, "detect-only", false, "stop after the detection, do not write clips")
	resultJSON := pflag.String("result-json", "", "a path to write the boundary result (JSON) to")
	reportJSON := pflag.String("report-json", "", "a path to write the full report (JSON) to")
	pflag.StringVar(&cfg.ExportFramesDir, "export-frames", "", "a directory to write every frame to as frame<N>.jpg")

	model := pflag.String("model", "", fmt.Sprintf("event model to run on the video, available: %v", eventmodel.Names()))
	pflag.StringVar(&cfg.ModelPath, "model-path", "", "a path to the event model artifact")
	pflag.StringVar(&cfg.UploadTo, "upload-to", "", "an s3://bucket/prefix URL to upload the clips to")
	pflag.StringVar(&cfg.Fetch.Directory, "download-dir", cfg.Fetch.Directory, "a directory to store remote videos in")
	pflag.DurationVar(&cfg.Fetch.MaxDuration, "max-duration", 0, "record at most this much of a remote stream (0 = until the end)")
	authKey := pflag.String("auth-key", "", "a key to append to the input URL")
	pflag.Parse()
	if len(pflag.Args()) != 2 {
		pflag.Usage()
		os.Exit(1)
	}

	cfg.Source = pflag.Arg(0)
	cfg.OutputDir = pflag.Arg(1)
	cfg.Detection.EdgeBaseline = detector.BaselineType(*edgeBaseline)
	cfg.Detection.EdgeBackend = detector.EdgeBackend(*edgeBackend)
	cfg.Model = eventmodel.Name(*model)
	cfg.Fetch.AuthKey = secret.New(*authKey)
	if *includeOuter {
		cfg.SegmentPolicy = segmenter.PolicyIncludeOuter
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()
	logger.SetDefault(func() logger.Logger {
		return l
	})
	defer belt.Flush(ctx)
	logger.InstallAstiavLogCallback(l)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}
	if *metricsAddr != "" {
		metrics.StartServer(ctx, *metricsAddr)
	}

	report, err := avscene.New(cfg).Run(ctx)
	if report != nil {
		if report.Result != nil && *resultJSON != "" {
			if err := writeJSON(*resultJSON, report.Result); err != nil {
				l.Error(err)
			}
		}
		if *reportJSON != "" {
			if err := writeJSON(*reportJSON, report); err != nil {
				l.Error(err)
			}
		}
	}
	if err != nil {
		l.Fatal(err)
	}

	if cfg.DetectOnly {
		for _, name := range report.Result.Names() {
			fmt.Printf("%s: %v\n", name, report.Result.Signals[name].Indices())
		}
		return
	}
	fmt.Println(strings.Join(report.Clips, "\n"))
	for _, interval := range report.Intervals {
		fmt.Printf("event: %s\n", interval)
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return fmt.Errorf("unable to serialize %T: %w", v, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return nil
}
