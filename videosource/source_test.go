package videosource

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avscene/avclip"
	"github.com/xaionaro-go/avscene/framestore"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/secret"
)

func TestKindOf(t *testing.T) {
	for src, kind := range map[string]Kind{
		"/tmp/video.mp4":                 KindLocal,
		"video.mp4":                      KindLocal,
		`C:\videos\video.mp4`:            KindLocal,
		"file:///tmp/video.mp4":          KindLocal,
		"s3://bucket/videos/video.mp4":   KindS3,
		"https://example.com/video.mp4":  KindURL,
		"rtmp://example.com/live/stream": KindURL,
	} {
		require.Equal(t, kind, KindOf(src), src)
	}
}

func TestParseS3URL(t *testing.T) {
	loc, err := ParseS3URL("s3://bucket/videos/video.mp4")
	require.NoError(t, err)
	require.Equal(t, S3Location{Bucket: "bucket", Key: "videos/video.mp4"}, loc)
	require.Equal(t, "s3://bucket/videos/video.mp4", loc.String())

	loc, err = ParseS3URL("s3://bucket")
	require.NoError(t, err)
	require.Equal(t, "", loc.Key)

	_, err = ParseS3URL("https://bucket/key")
	require.ErrorAs(t, err, &types.ErrInvalidInput{})
	_, err = ParseS3URL("s3:///key")
	require.ErrorAs(t, err, &types.ErrInvalidInput{})
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("AVSCENE_S3_ENDPOINT", "minio:9000")
	t.Setenv("AVSCENE_S3_ACCESS_KEY", "access")
	t.Setenv("AVSCENE_S3_SECRET_KEY", "secret")
	t.Setenv("AVSCENE_S3_USE_SSL", "true")
	cfg, err := S3ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, &S3Config{
		Endpoint:  "minio:9000",
		AccessKey: "access",
		SecretKey: "secret",
		UseSSL:    true,
	}, cfg)
}

func TestLocalFileName(t *testing.T) {
	require.Equal(t, "video.mp4", localFileName("https://example.com/"))
	require.Equal(t, "clip.mkv", localFileName("https://example.com/path/clip.mkv?token=1"))
	require.Equal(t, "stream.mp4", localFileName("rtmp://example.com/live/stream"))
}

func TestURLWithAuthKey(t *testing.T) {
	require.Equal(t, "rtmp://host/app", urlWithAuthKey("rtmp://host/app", secret.New("")))
	require.Equal(t, "rtmp://host/app/key", urlWithAuthKey("rtmp://host/app/", secret.New("key")))
}

func TestFetchLocal(t *testing.T) {
	ctx := context.Background()

	_, err := Fetch(ctx, "", DefaultConfig())
	require.ErrorAs(t, err, &types.ErrInvalidInput{})

	_, err = Fetch(ctx, filepath.Join(t.TempDir(), "missing.mp4"), DefaultConfig())
	require.ErrorAs(t, err, &types.ErrNotFound{})

	_, err = Fetch(ctx, t.TempDir(), DefaultConfig())
	require.ErrorAs(t, err, &types.ErrNotFound{})

	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))
	got, err := Fetch(ctx, path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, path, got)

	got, err = Fetch(ctx, "file://"+path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, path, got)
}

type testFrames []image.Image

func (f testFrames) FrameCount() int           { return len(f) }
func (f testFrames) Frame(idx int) image.Image { return f[idx] }

func TestFetchURL(t *testing.T) {
	ctx := context.Background()

	frames := make(testFrames, 12)
	for idx := range frames {
		frames[idx] = image.NewRGBA(image.Rect(0, 0, 32, 32))
	}
	srcPath := filepath.Join(t.TempDir(), "source.mp4")
	require.NoError(t, avclip.New(avclip.DefaultConfig()).WriteImages(ctx, srcPath, frames, types.Rational{Num: 12, Den: 1}))

	dir := filepath.Join(t.TempDir(), "downloads")
	got, err := fetchURL(ctx, "file:"+srcPath, Config{Directory: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "source.mp4"), got)

	meta, err := framestore.Probe(ctx, got)
	require.NoError(t, err)
	require.Equal(t, 12, meta.FrameCount)
}
