// encoder.go implements the encoder of a single clip.

package avclip

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/avscene/pool"
	"github.com/xaionaro-go/avscene/scaler"
	"github.com/xaionaro-go/avscene/types"
)

// clipEncoder encodes frames into a single output file.
type clipEncoder struct {
	Path          string
	FormatContext *astiav.FormatContext
	Stream        *astiav.Stream
	CodecContext  *astiav.CodecContext
	Scaler        *scaler.Auto

	scaled        *astiav.Frame
	packet        *astiav.Packet
	closer        *astikit.Closer
	framesWritten int64
}

func openClipEncoder(
	ctx context.Context,
	path string,
	codecs []*astiav.Codec,
	frameRate types.Rational,
	sample *astiav.Frame,
) (_ret *clipEncoder, _err error) {
	logger.Debugf(ctx, "openClipEncoder(ctx, '%s', %d codecs, %s)", path, len(codecs), frameRate)
	defer func() {
		logger.Debugf(ctx, "/openClipEncoder(ctx, '%s', %d codecs, %s): %v", path, len(codecs), frameRate, _err)
	}()

	e := &clipEncoder{
		Path:   path,
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			e.closer.Close()
		}
	}()

	formatContext, err := astiav.AllocOutputFormatContext(nil, "", path)
	if err != nil {
		return nil, fmt.Errorf("unable to allocate an output format context for '%s': %w", path, err)
	}
	if formatContext == nil {
		return nil, fmt.Errorf("unable to allocate an output format context for '%s'", path)
	}
	e.FormatContext = formatContext
	e.closer.Add(formatContext.Free)

	if e.Stream = formatContext.NewStream(nil); e.Stream == nil {
		return nil, fmt.Errorf("unable to create an output stream")
	}

	var errs []error
	for _, codec := range codecs {
		if codec == nil {
			continue
		}
		err := e.openCodec(ctx, codec, frameRate, sample)
		if err == nil {
			break
		}
		logger.Warnf(ctx, "unable to open encoder '%s': %v", codec.Name(), err)
		errs = append(errs, fmt.Errorf("encoder '%s': %w", codec.Name(), err))
	}
	if e.CodecContext == nil {
		return nil, fmt.Errorf("unable to open any encoder: %w", errors.Join(errs...))
	}

	if err := e.Stream.CodecParameters().FromCodecContext(e.CodecContext); err != nil {
		return nil, fmt.Errorf("unable to copy the codec parameters: %w", err)
	}
	e.Stream.SetTimeBase(e.CodecContext.TimeBase())

	if !formatContext.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioContext, err := astiav.OpenIOContext(
			path,
			astiav.NewIOContextFlags(astiav.IOContextFlagWrite),
			nil,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to open '%s' for writing: %w", path, err)
		}
		e.closer.AddWithError(ioContext.Close)
		formatContext.SetPb(ioContext)
	}

	if err := formatContext.WriteHeader(nil); err != nil {
		return nil, fmt.Errorf("unable to write the header: %w", err)
	}

	e.scaled = pool.Frame.Get()
	e.closer.Add(func() { pool.Frame.Put(e.scaled) })
	e.packet = pool.Packet.Get()
	e.closer.Add(func() { pool.Packet.Put(e.packet) })
	return e, nil
}

func (e *clipEncoder) openCodec(
	ctx context.Context,
	codec *astiav.Codec,
	frameRate types.Rational,
	sample *astiav.Frame,
) error {
	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return fmt.Errorf("unable to allocate a codec context")
	}

	pixelFormat := sample.PixelFormat()
	if pixFmts := codec.PixelFormats(); len(pixFmts) > 0 && !containsPixelFormat(pixFmts, pixelFormat) {
		pixelFormat = pixFmts[0]
	}
	codecContext.SetWidth(sample.Width())
	codecContext.SetHeight(sample.Height())
	codecContext.SetPixelFormat(pixelFormat)
	codecContext.SetSampleAspectRatio(sample.SampleAspectRatio())
	codecContext.SetFramerate(astiav.NewRational(frameRate.Num, frameRate.Den))
	codecContext.SetTimeBase(astiav.NewRational(frameRate.Den, frameRate.Num))
	if e.FormatContext.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		codecContext.SetFlags(codecContext.Flags() | astiav.CodecContextFlags(astiav.CodecContextFlagGlobalHeader))
	}

	if err := codecContext.Open(codec, nil); err != nil {
		codecContext.Free()
		return err
	}
	logger.Debugf(ctx, "opened encoder '%s': %dx%d %s @ %s", codec.Name(), sample.Width(), sample.Height(), pixelFormat, frameRate)

	e.CodecContext = codecContext
	e.closer.Add(codecContext.Free)
	e.Scaler = scaler.NewAuto(types.Resolution{}, pixelFormat)
	e.closer.Add(func() { e.Scaler.Close(ctx) })
	return nil
}

func containsPixelFormat(s []astiav.PixelFormat, v astiav.PixelFormat) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// WriteFrame encodes the frame as the next frame of the clip.
func (e *clipEncoder) WriteFrame(
	ctx context.Context,
	f *astiav.Frame,
) error {
	input := f
	if e.Scaler.NeedsScaling(f) {
		if err := e.Scaler.ScaleFrame(ctx, f, e.scaled); err != nil {
			return fmt.Errorf("unable to convert the frame: %w", err)
		}
		defer e.scaled.Unref()
		input = e.scaled
	}

	input.SetPts(e.framesWritten)
	input.SetPictureType(astiav.PictureTypeNone)
	if err := e.CodecContext.SendFrame(input); err != nil {
		return fmt.Errorf("unable to send a frame to the encoder: %w", err)
	}
	e.framesWritten++
	return e.writePackets(ctx)
}

func (e *clipEncoder) writePackets(ctx context.Context) error {
	for {
		err := e.CodecContext.ReceivePacket(e.packet)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
			return nil
		default:
			return fmt.Errorf("unable to receive a packet from the encoder: %w", err)
		}

		e.packet.SetStreamIndex(e.Stream.Index())
		e.packet.RescaleTs(e.CodecContext.TimeBase(), e.Stream.TimeBase())
		logger.Tracef(ctx, "writing a packet: pts:%d dts:%d", e.packet.Pts(), e.packet.Dts())
		err = e.FormatContext.WriteInterleavedFrame(e.packet)
		e.packet.Unref()
		if err != nil {
			return fmt.Errorf("unable to write a packet into '%s': %w", e.Path, err)
		}
	}
}

// Finish flushes the encoder and finalizes the file.
func (e *clipEncoder) Finish(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Finish('%s'): %d frames", e.Path, e.framesWritten)
	defer func() { logger.Debugf(ctx, "/Finish('%s'): %v", e.Path, _err) }()
	defer e.closer.Close()

	if err := e.CodecContext.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("unable to flush the encoder: %w", err)
	}
	if err := e.writePackets(ctx); err != nil {
		return err
	}
	if err := e.FormatContext.WriteTrailer(); err != nil {
		return fmt.Errorf("unable to write the trailer into '%s': %w", e.Path, err)
	}
	return nil
}

// Abort releases the resources without finalizing the file.
func (e *clipEncoder) Abort() {
	e.closer.Close()
}
