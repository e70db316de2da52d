// remux.go implements copying a remote video into a local file.

package videosource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/avscene/avconv"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/pool"
	"github.com/xaionaro-go/avscene/types"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/secret"
)

// localFileName picks the name of the local copy of a remote video.
func localFileName(src string) string {
	name := defaultFileName + defaultExtension
	u, err := url.Parse(src)
	if err != nil {
		return name
	}
	base := path.Base(u.Path)
	switch base {
	case "", ".", "/":
		return name
	}
	if path.Ext(base) == "" {
		return base + defaultExtension
	}
	return base
}

func urlWithAuthKey(src string, authKey secret.String) string {
	if authKey.Get() == "" {
		return src
	}
	return strings.TrimSuffix(src, "/") + "/" + authKey.Get()
}

// fetchURL records the source through libav without re-encoding.
func fetchURL(
	ctx context.Context,
	src string,
	cfg Config,
) (_ret string, _err error) {
	dir, err := prepareDirectory(cfg)
	if err != nil {
		return "", err
	}
	dstPath := filepath.Join(dir, localFileName(src))
	logger.Infof(ctx, "recording '%s' to '%s'", src, dstPath)

	closer := astikit.NewCloser()
	defer closer.Close()

	input := astiav.AllocFormatContext()
	if input == nil {
		return "", fmt.Errorf("unable to allocate a format context")
	}
	closer.Add(input.Free)

	logger.Debugf(observability.OnInsecureDebug(ctx), "URL: %s", urlWithAuthKey(src, cfg.AuthKey))
	if err := input.OpenInput(urlWithAuthKey(src, cfg.AuthKey), nil, nil); err != nil {
		if cfg.AuthKey.Get() != "" {
			return "", fmt.Errorf("unable to open input by URL '%s/<HIDDEN>': %w", src, err)
		}
		return "", fmt.Errorf("unable to open input by URL '%s': %w", src, err)
	}
	closer.Add(input.CloseInput)
	if err := input.FindStreamInfo(nil); err != nil {
		return "", types.ErrCorruptMedia{Path: src, Reason: fmt.Sprintf("unable to get stream info: %v", err)}
	}
	if avconv.FindVideoStream(input) == nil {
		return "", types.ErrCorruptMedia{Path: src, Reason: "no video stream"}
	}

	output, err := astiav.AllocOutputFormatContext(nil, "", dstPath)
	if err != nil || output == nil {
		return "", fmt.Errorf("unable to allocate an output format context for '%s': %w", dstPath, err)
	}
	closer.Add(output.Free)

	streamMap := map[int]*astiav.Stream{}
	for _, inStream := range input.Streams() {
		switch inStream.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo, astiav.MediaTypeAudio:
		default:
			continue
		}
		outStream := output.NewStream(nil)
		if outStream == nil {
			return "", fmt.Errorf("unable to create an output stream")
		}
		if err := inStream.CodecParameters().Copy(outStream.CodecParameters()); err != nil {
			return "", fmt.Errorf("unable to copy the codec parameters of stream #%d: %w", inStream.Index(), err)
		}
		outStream.CodecParameters().SetCodecTag(0)
		outStream.SetTimeBase(inStream.TimeBase())
		streamMap[inStream.Index()] = outStream
	}

	if !output.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioContext, err := astiav.OpenIOContext(dstPath, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			return "", fmt.Errorf("unable to open '%s' for writing: %w", dstPath, err)
		}
		closer.AddWithError(ioContext.Close)
		output.SetPb(ioContext)
	}
	if err := output.WriteHeader(nil); err != nil {
		return "", fmt.Errorf("unable to write the header into '%s': %w", dstPath, err)
	}

	if err := copyPackets(ctx, input, output, streamMap, cfg); err != nil {
		return "", err
	}

	if err := output.WriteTrailer(); err != nil {
		return "", fmt.Errorf("unable to write the trailer into '%s': %w", dstPath, err)
	}
	return dstPath, nil
}

func copyPackets(
	ctx context.Context,
	input *astiav.FormatContext,
	output *astiav.FormatContext,
	streamMap map[int]*astiav.Stream,
	cfg Config,
) error {
	pkt := pool.Packet.Get()
	defer pool.Packet.Put(pkt)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := input.ReadFrame(pkt)
		if err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("unable to read a packet: %w", err)
		}

		inStream := input.Streams()[pkt.StreamIndex()]
		outStream, ok := streamMap[pkt.StreamIndex()]
		if !ok {
			pkt.Unref()
			continue
		}
		if cfg.MaxDuration > 0 && pkt.Pts() != avconv.NoPTSValue {
			startTime := inStream.StartTime()
			if startTime == avconv.NoPTSValue {
				startTime = 0
			}
			if avconv.Duration(pkt.Pts()-startTime, inStream.TimeBase()) > cfg.MaxDuration {
				logger.Debugf(ctx, "reached the max duration %v", cfg.MaxDuration)
				pkt.Unref()
				return nil
			}
		}

		pkt.RescaleTs(inStream.TimeBase(), outStream.TimeBase())
		pkt.SetStreamIndex(outStream.Index())
		err = output.WriteInterleavedFrame(pkt)
		pkt.Unref()
		if err != nil {
			return fmt.Errorf("unable to write a packet: %w", err)
		}
	}
}
