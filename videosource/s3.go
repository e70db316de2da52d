// s3.go implements fetching and uploading videos via S3.

package videosource

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/metrics"
	"github.com/xaionaro-go/avscene/types"
)

type S3Config struct {
	Endpoint  string `env:"AVSCENE_S3_ENDPOINT"   envDefault:"localhost:9000"`
	AccessKey string `env:"AVSCENE_S3_ACCESS_KEY"`
	SecretKey string `env:"AVSCENE_S3_SECRET_KEY"`
	UseSSL    bool   `env:"AVSCENE_S3_USE_SSL"    envDefault:"false"`
}

func S3ConfigFromEnv() (*S3Config, error) {
	cfg := &S3Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse the S3 configuration from the environment: %w", err)
	}
	return cfg, nil
}

// S3Location is a parsed "s3://bucket/key" URL.
type S3Location struct {
	Bucket string
	Key    string
}

func (l S3Location) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

func ParseS3URL(s string) (S3Location, error) {
	u, err := url.Parse(s)
	if err != nil {
		return S3Location{}, types.ErrInvalidInput{Reason: fmt.Sprintf("unable to parse URL '%s': %v", s, err)}
	}
	if !strings.EqualFold(u.Scheme, "s3") || u.Host == "" {
		return S3Location{}, types.ErrInvalidInput{Reason: fmt.Sprintf("'%s' is not an s3://bucket/key URL", s)}
	}
	return S3Location{
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func newS3Client(cfg *S3Config) (*miniogo.Client, error) {
	if cfg == nil {
		var err error
		cfg, err = S3ConfigFromEnv()
		if err != nil {
			return nil, err
		}
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create an S3 client for '%s': %w", cfg.Endpoint, err)
	}
	return client, nil
}

func fetchS3(
	ctx context.Context,
	src string,
	cfg Config,
) (string, error) {
	loc, err := ParseS3URL(src)
	if err != nil {
		return "", err
	}
	if loc.Key == "" || strings.HasSuffix(loc.Key, "/") {
		return "", types.ErrInvalidInput{Reason: fmt.Sprintf("'%s' does not point to an object", src)}
	}
	dir, err := prepareDirectory(cfg)
	if err != nil {
		return "", err
	}
	client, err := newS3Client(cfg.S3)
	if err != nil {
		return "", err
	}

	dstPath := filepath.Join(dir, path.Base(loc.Key))
	logger.Infof(ctx, "downloading %s to '%s'", loc, dstPath)
	err = client.FGetObject(ctx, loc.Bucket, loc.Key, dstPath, miniogo.GetObjectOptions{})
	if err != nil {
		if miniogo.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", types.ErrNotFound{Path: loc.String(), Err: err}
		}
		return "", fmt.Errorf("unable to download %s: %w", loc, err)
	}
	return dstPath, nil
}

// Upload uploads the files into the "s3://bucket/prefix" destination and
// returns the resulting object URLs.
func Upload(
	ctx context.Context,
	paths []string,
	dst string,
	s3Cfg *S3Config,
) (_ret []string, _err error) {
	logger.Debugf(ctx, "Upload(ctx, %v, '%s')", paths, dst)
	defer func() { logger.Debugf(ctx, "/Upload(ctx, %v, '%s'): %v %v", paths, dst, _ret, _err) }()
	defer metrics.ObserveStage(metrics.StageUpload, time.Now())

	loc, err := ParseS3URL(dst)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(s3Cfg)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(paths))
	for _, p := range paths {
		objLoc := S3Location{
			Bucket: loc.Bucket,
			Key:    path.Join(loc.Key, filepath.Base(p)),
		}
		_, err := client.FPutObject(ctx, objLoc.Bucket, objLoc.Key, p, miniogo.PutObjectOptions{
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
		})
		if err != nil {
			return result, fmt.Errorf("unable to upload '%s' to %s: %w", p, objLoc, err)
		}
		logger.Debugf(ctx, "uploaded '%s' to %s", p, objLoc)
		result = append(result, objLoc.String())
	}
	return result, nil
}
