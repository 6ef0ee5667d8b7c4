// Package video exports a rendered layout with ffmpeg: raw frames are piped in
// on stdin and the audio track is mixed from the layout's narration, cues and
// music bed.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/system"
	"github.com/ivlev/storyreel/internal/timeline"
)

const DefaultChunkFrames = 48

var ErrNothingToExport = errors.New("layout has no frames")

// FrameSource renders frames in any order; *renderer.Renderer satisfies it.
type FrameSource interface {
	Bounds() image.Rectangle
	RenderRange(ctx context.Context, from, to int, sink func(frame int, img *image.RGBA) error) error
}

type Options struct {
	FFmpegPath   string
	VideoEncoder string // "auto" probes for a hardware encoder
	Quality      int
	AudioCodec   string
	ChunkFrames  int
}

type FFmpegExporter struct {
	opts   Options
	logger zerolog.Logger
}

func NewFFmpegExporter(opts Options, logger zerolog.Logger) *FFmpegExporter {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.VideoEncoder == "" {
		opts.VideoEncoder = "libx264"
	}
	if opts.Quality <= 0 {
		opts.Quality = 23
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}
	if opts.ChunkFrames <= 0 {
		opts.ChunkFrames = DefaultChunkFrames
	}
	return &FFmpegExporter{opts: opts, logger: logger.With().Str("component", "export").Logger()}
}

// Args returns the ffmpeg command line that encodes l to outPath.
func (e *FFmpegExporter) Args(l *timeline.Layout, encoder, outPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", l.Width, l.Height),
		"-framerate", strconv.Itoa(l.FPS),
		"-i", "-",
	}

	mix := BuildAudioMix(l, 1)
	if mix != nil {
		for _, in := range mix.Inputs {
			if in.Loop {
				args = append(args, "-stream_loop", "-1")
			}
			args = append(args, "-i", in.Path)
		}
		args = append(args, "-filter_complex", mix.Filter)
	}

	args = append(args, "-map", "0:v")
	if mix != nil {
		args = append(args, "-map", mix.Label, "-c:a", e.opts.AudioCodec)
	}
	args = append(args, "-frames:v", strconv.Itoa(l.TotalFrames), "-c:v", encoder, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(encoder, e.opts.Quality)...)
	return append(args, outPath)
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox ignores -crf; quality maps to a bitrate instead.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default:
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// Export renders every frame of l in order into ffmpeg. Frames are rendered in
// parallel chunks and written sequentially.
func (e *FFmpegExporter) Export(ctx context.Context, l *timeline.Layout, frames FrameSource, outPath string) error {
	if l.Empty() || l.TotalFrames == 0 {
		return ErrNothingToExport
	}
	encoder := e.opts.VideoEncoder
	if encoder == "auto" {
		encoder = system.BestH264Encoder(ctx, e.opts.FFmpegPath)
	}
	args := e.Args(l, encoder, outPath)
	e.logger.Info().Str("encoder", encoder).Str("output", outPath).Int("frames", l.TotalFrames).Msg("export started")
	e.logger.Debug().Strs("args", args).Msg("ffmpeg command")

	cmd := exec.CommandContext(ctx, e.opts.FFmpegPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	writeErr := e.writeFrames(ctx, stdin, l.TotalFrames, frames)
	stdin.Close()
	waitErr := cmd.Wait()
	if waitErr != nil {
		// An early exit breaks the pipe; ffmpeg's output says why.
		if writeErr != nil {
			return fmt.Errorf("ffmpeg: %w (write frames: %w), output: %s", waitErr, writeErr, out.String())
		}
		return fmt.Errorf("ffmpeg: %w, output: %s", waitErr, out.String())
	}
	if writeErr != nil {
		return fmt.Errorf("write frames: %w", writeErr)
	}
	e.logger.Info().Str("output", outPath).Msg("export finished")
	return nil
}

func (e *FFmpegExporter) writeFrames(ctx context.Context, w io.Writer, total int, frames FrameSource) error {
	return WriteFrames(ctx, w, 0, total, e.opts.ChunkFrames, frames)
}

// WriteFrames writes frames [from, to) as packed RGBA in frame order.
func WriteFrames(ctx context.Context, w io.Writer, from, to, chunk int, frames FrameSource) error {
	if chunk <= 0 {
		chunk = DefaultChunkFrames
	}
	b := frames.Bounds()
	size := b.Dx() * b.Dy() * 4
	bufs := make([][]byte, chunk)
	for i := range bufs {
		bufs[i] = make([]byte, size)
	}

	for start := from; start < to; start += chunk {
		end := min(start+chunk, to)
		err := frames.RenderRange(ctx, start, end, func(f int, img *image.RGBA) error {
			packRGBA(bufs[f-start], img)
			return nil
		})
		if err != nil {
			return err
		}
		for i := 0; i < end-start; i++ {
			if _, err := w.Write(bufs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// packRGBA copies img row by row so sub-images with a wider stride still come
// out packed.
func packRGBA(dst []byte, img *image.RGBA) {
	b := img.Bounds()
	row := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst[y*row:(y+1)*row], img.Pix[off:off+row])
	}
}
