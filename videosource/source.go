// Package videosource acquires a video into local storage: from a local
// path, an S3-compatible bucket or any URL libav can read.
package videosource

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/secret"
)

type Kind string

const (
	KindLocal = Kind("local")
	KindS3    = Kind("s3")
	KindURL   = Kind("url")
)

const (
	defaultFileName  = "video"
	defaultExtension = ".mp4"
)

type Config struct {
	// Directory is where remote videos are stored; it is created if
	// it does not exist.
	Directory string

	// AuthKey is appended to the URL of a libav source (like a stream key).
	AuthKey secret.String

	// MaxDuration > 0 limits how much of a libav source is recorded,
	// which is required for live streams.
	MaxDuration time.Duration

	// S3 configures access to "s3://" sources; if nil, it is loaded from
	// the environment.
	S3 *S3Config
}

func DefaultConfig() Config {
	return Config{
		Directory: os.TempDir(),
	}
}

// KindOf returns how the source is acquired.
func KindOf(src string) Kind {
	u, err := url.Parse(src)
	if err != nil || len(u.Scheme) <= 1 {
		// no scheme, or a Windows drive letter
		return KindLocal
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return KindLocal
	case "s3":
		return KindS3
	default:
		return KindURL
	}
}

// Fetch makes the source available as a local file and returns its path.
func Fetch(
	ctx context.Context,
	src string,
	cfg Config,
) (_ret string, _err error) {
	kind := KindOf(src)
	logger.Debugf(ctx, "Fetch(ctx, '%s' [%s])", src, kind)
	defer func() { logger.Debugf(ctx, "/Fetch(ctx, '%s' [%s]): '%s' %v", src, kind, _ret, _err) }()
	defer metrics.ObserveStage(metrics.StageFetch, time.Now())

	if src == "" {
		return "", types.ErrInvalidInput{Reason: "the video source is empty"}
	}

	var path string
	var err error
	switch kind {
	case KindLocal:
		path, err = fetchLocal(src)
	case KindS3:
		path, err = fetchS3(ctx, src, cfg)
	case KindURL:
		path, err = fetchURL(ctx, src, cfg)
	}
	if err != nil {
		return "", err
	}
	metrics.SourcesFetchedTotal.WithLabelValues(string(kind)).Inc()
	return path, nil
}

func fetchLocal(src string) (string, error) {
	path := strings.TrimPrefix(src, "file://")
	info, err := os.Stat(path)
	if err != nil {
		return "", types.ErrNotFound{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", types.ErrNotFound{Path: path, Err: fmt.Errorf("is a directory")}
	}
	return path, nil
}

func prepareDirectory(cfg Config) (string, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = DefaultConfig().Directory
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory '%s': %w", dir, err)
	}
	return dir, nil
}
