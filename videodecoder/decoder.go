// Package videodecoder demuxes and decodes the first video stream of a
// media file, frame by frame, in presentation order.
package videodecoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avscene/avconv"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/pool"
	"github.com/xaionaro-go/avscene/types"
)

// ErrStop could be returned by a ForEachFrame callback to stop decoding
// early without an error.
var ErrStop = errors.New("stop decoding")

// StreamInfo is what the container says about the video stream, before any
// frame is decoded.
type StreamInfo struct {
	Index       int
	FrameRate   types.Rational
	TimeBase    types.Rational
	NbFrames    int64
	Resolution  types.Resolution
	PixelFormat astiav.PixelFormat
	CodecName   string
	Duration    time.Duration
}

type Decoder struct {
	Path          string
	FormatContext *astiav.FormatContext
	Stream        *astiav.Stream
	CodecContext  *astiav.CodecContext

	codecName string
	closer    *astikit.Closer
}

// Open opens the file and prepares a decoder for its first video stream.
func Open(
	ctx context.Context,
	path string,
) (_ret *Decoder, _err error) {
	logger.Debugf(ctx, "Open(ctx, '%s')", path)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s'): %v", path, _err) }()

	info, err := os.Stat(path)
	if err != nil {
		return nil, types.ErrNotFound{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, types.ErrNotFound{Path: path, Err: fmt.Errorf("is a directory")}
	}

	d := &Decoder{
		Path:   path,
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			d.closer.Close()
		}
	}()

	d.FormatContext = astiav.AllocFormatContext()
	if d.FormatContext == nil {
		return nil, fmt.Errorf("unable to allocate a format context")
	}
	d.closer.Add(d.FormatContext.Free)

	if err := d.FormatContext.OpenInput(path, nil, nil); err != nil {
		return nil, types.ErrCorruptMedia{Path: path, Reason: fmt.Sprintf("unable to open the input: %v", err)}
	}
	d.closer.Add(d.FormatContext.CloseInput)

	if err := d.FormatContext.FindStreamInfo(nil); err != nil {
		return nil, types.ErrCorruptMedia{Path: path, Reason: fmt.Sprintf("unable to get stream info: %v", err)}
	}

	d.Stream = avconv.FindVideoStream(d.FormatContext)
	if d.Stream == nil {
		return nil, types.ErrCorruptMedia{Path: path, Reason: "no video stream"}
	}

	codecParams := d.Stream.CodecParameters()
	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, types.ErrCorruptMedia{Path: path, Reason: fmt.Sprintf("no decoder for codec %s", codecParams.CodecID())}
	}

	d.codecName = codec.Name()
	d.CodecContext = astiav.AllocCodecContext(codec)
	if d.CodecContext == nil {
		return nil, fmt.Errorf("unable to allocate a codec context for %s", codec.Name())
	}
	d.closer.Add(d.CodecContext.Free)

	if err := codecParams.ToCodecContext(d.CodecContext); err != nil {
		return nil, fmt.Errorf("unable to copy the codec parameters to the codec context: %w", err)
	}
	d.CodecContext.SetPktTimeBase(d.Stream.TimeBase())
	if err := d.CodecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("unable to open the decoder %s: %w", codec.Name(), err)
	}

	if logger.FromCtx(ctx).Level() >= logger.LevelDebug {
		logger.Debugf(ctx, "stream info: %s", spew.Sdump(d.StreamInfo()))
	}
	return d, nil
}

func (d *Decoder) String() string {
	return fmt.Sprintf("VideoDecoder(%s)", d.Path)
}

func (d *Decoder) StreamInfo() StreamInfo {
	codecParams := d.Stream.CodecParameters()
	timeBase := d.Stream.TimeBase()

	duration := avconv.Duration(d.Stream.Duration(), timeBase)
	if duration == avconv.NoDuration || duration <= 0 {
		// the format context duration is in AV_TIME_BASE units (microseconds)
		duration = time.Duration(d.FormatContext.Duration()) * time.Microsecond
	}

	return StreamInfo{
		Index:     d.Stream.Index(),
		FrameRate: avconv.RationalFromAV(d.Stream.AvgFrameRate()),
		TimeBase:  avconv.RationalFromAV(timeBase),
		NbFrames:  d.Stream.NbFrames(),
		Resolution: types.Resolution{
			Width:  uint32(codecParams.Width()),
			Height: uint32(codecParams.Height()),
		},
		PixelFormat: codecParams.PixelFormat(),
		CodecName:   d.codecName,
		Duration:    duration,
	}
}

// ForEachFrame decodes the video stream from the beginning and calls
// callback for every decoded frame with its index. The frame is only valid
// during the callback.
func (d *Decoder) ForEachFrame(
	ctx context.Context,
	callback func(ctx context.Context, frameIdx int, frame *astiav.Frame) error,
) (_err error) {
	logger.Debugf(ctx, "ForEachFrame")
	defer func() { logger.Debugf(ctx, "/ForEachFrame: %v", _err) }()
	ctx = belt.WithField(ctx, "video_path", d.Path)

	pkt := pool.Packet.Get()
	defer pool.Packet.Put(pkt)
	f := pool.Frame.Get()
	defer pool.Frame.Put(f)

	frameIdx := 0
	receive := func() error {
		for {
			err := d.CodecContext.ReceiveFrame(f)
			switch {
			case err == nil:
			case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
				return nil
			default:
				return fmt.Errorf("unable to receive a frame from the decoder: %w", err)
			}
			logger.Tracef(ctx, "frame #%d: pts:%d", frameIdx, f.Pts())
			err = callback(ctx, frameIdx, f)
			f.Unref()
			if err != nil {
				return err
			}
			frameIdx++
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := d.FormatContext.ReadFrame(pkt)
		if err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return types.ErrCorruptMedia{Path: d.Path, Reason: fmt.Sprintf("unable to read a packet: %v", err)}
		}

		if pkt.StreamIndex() != d.Stream.Index() {
			pkt.Unref()
			continue
		}

		err = d.CodecContext.SendPacket(pkt)
		pkt.Unref()
		if err != nil && !errors.Is(err, astiav.ErrEagain) {
			return types.ErrCorruptMedia{Path: d.Path, Reason: fmt.Sprintf("unable to decode a packet: %v", err)}
		}

		if err := receive(); err != nil {
			return stopToNil(err)
		}
	}

	// draining the frames the decoder still holds:
	if err := d.CodecContext.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("unable to flush the decoder: %w", err)
	}
	return stopToNil(receive())
}

func stopToNil(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func (d *Decoder) Close() error {
	return d.closer.Close()
}
