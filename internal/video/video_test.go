package video

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/storyreel/internal/storyboard"
	"github.com/ivlev/storyreel/internal/timeline"
)

func layoutFor(t *testing.T, withAudio bool) *timeline.Layout {
	t.Helper()
	one := 1.0
	sb := &storyboard.Storyboard{
		Video: storyboard.VideoConfig{Width: 4, Height: 2, FPS: 30},
		Audio: storyboard.AudioConfig{BufferBetweenScenesSeconds: &one},
	}
	for i, d := range []float64{20, 30, 15} {
		s := storyboard.SceneSpec{ID: string(rune('a' + i)), Type: "title", AudioDurationSeconds: d}
		if withAudio {
			s.AudioFile = s.ID + ".mp3"
		}
		sb.Scenes = append(sb.Scenes, s)
	}
	if withAudio {
		sb.Audio.VoiceoverDir = "vo"
		sb.Scenes[1].SfxCues = []storyboard.SfxCue{{Sound: "whoosh", Frame: 5}}
		sb.Audio.BackgroundMusic = &storyboard.BackgroundMusic{Path: "bed.mp3", Volume: ptr(0.2)}
	}
	opts := timeline.DefaultOptions()
	opts.Cues.Dir = "sfx"
	l, err := timeline.NewBuilder(nil, opts, zerolog.Nop()).Build(sb, 0)
	require.NoError(t, err)
	return l
}

func TestBuildAudioMix(t *testing.T) {
	mix := BuildAudioMix(layoutFor(t, true), 1)
	require.NotNil(t, mix)

	wantInputs := []AudioInput{
		{Path: filepath.Join("vo", "a.mp3")},
		{Path: filepath.Join("vo", "b.mp3")},
		{Path: filepath.Join("vo", "c.mp3")},
		{Path: filepath.Join("sfx", "whoosh.mp3")},
		{Path: "bed.mp3", Loop: true},
	}
	if diff := cmp.Diff(wantInputs, mix.Inputs); diff != "" {
		t.Errorf("inputs (-want +got):\n%s", diff)
	}

	chains := strings.Split(mix.Filter, ";")
	require.Len(t, chains, 6)
	assert.Equal(t, "[1:a]atrim=0:21,asetpts=PTS-STARTPTS,adelay=0:all=1[v0]", chains[0])
	assert.Equal(t, "[2:a]atrim=0:31,asetpts=PTS-STARTPTS,adelay=21000:all=1[v1]", chains[1])
	assert.Equal(t, "[3:a]atrim=0:16,asetpts=PTS-STARTPTS,adelay=52000:all=1[v2]", chains[2])
	assert.Equal(t, "[4:a]atrim=0:1,asetpts=PTS-STARTPTS,volume=0.1,adelay=21167:all=1[c0]", chains[3])
	assert.True(t, strings.HasPrefix(chains[4], "[5:a]atrim=0:68,asetpts=PTS-STARTPTS,volume='0.2*min("), chains[4])
	assert.True(t, strings.HasSuffix(chains[4], "':eval=frame[bed]"), chains[4])
	assert.Equal(t, "[v0][v1][v2][c0][bed]amix=inputs=5:duration=longest:normalize=0,apad,atrim=0:68[aout]", chains[5])
	assert.Equal(t, "[aout]", mix.Label)
}

func TestBuildAudioMixWithoutAudio(t *testing.T) {
	assert.Nil(t, BuildAudioMix(layoutFor(t, false), 1))
	assert.Nil(t, BuildAudioMix(&timeline.Layout{}, 1))
}

func TestBedVolumeExpr(t *testing.T) {
	bed := &timeline.Bed{Volume: 0.15, TotalFrames: 300, FadeInFrames: 60, FadeOutFrames: 90}
	want := "0.15*min(" +
		"clip(t/2,0,1)*clip(t/2,0,1)*(3-2*clip(t/2,0,1))," +
		"clip((10-t)/3,0,1)*clip((10-t)/3,0,1)*(3-2*clip((10-t)/3,0,1)))"
	assert.Equal(t, want, BedVolumeExpr(bed, 30))
}

func TestArgs(t *testing.T) {
	e := NewFFmpegExporter(Options{Quality: 28}, zerolog.Nop())
	args := e.Args(layoutFor(t, true), "libx264", "out.mp4")
	joined := strings.Join(args, " ")

	assert.True(t, strings.HasPrefix(joined, "-y -f rawvideo -pixel_format rgba -video_size 4x2 -framerate 30 -i -"), joined)
	assert.Contains(t, joined, "-stream_loop -1 -i bed.mp3")
	assert.NotContains(t, joined, "-stream_loop -1 -i "+filepath.Join("vo", "a.mp3"))
	assert.Contains(t, joined, "-map 0:v -map [aout] -c:a aac")
	assert.Contains(t, joined, "-frames:v 2040 -c:v libx264 -pix_fmt yuv420p -crf 28 -preset medium")
	assert.Equal(t, "out.mp4", args[len(args)-1])

	silent := strings.Join(e.Args(layoutFor(t, false), "h264_nvenc", "out.mp4"), " ")
	assert.NotContains(t, silent, "-filter_complex")
	assert.NotContains(t, silent, "[aout]")
	assert.Contains(t, silent, "-cq 28")
}

func TestQualityArgs(t *testing.T) {
	assert.Equal(t, []string{"-b:v", "7500k"}, qualityArgs("h264_videotoolbox", 75))
	assert.Equal(t, []string{"-cq", "20"}, qualityArgs("h264_nvenc", 20))
	assert.Equal(t, []string{"-crf", "23", "-preset", "medium"}, qualityArgs("libx264", 23))
}

// reverseSource delivers every chunk back to front; each frame is filled with
// its own number.
type reverseSource struct {
	bounds image.Rectangle
}

func (s reverseSource) Bounds() image.Rectangle { return s.bounds }

func (s reverseSource) RenderRange(_ context.Context, from, to int, sink func(int, *image.RGBA) error) error {
	for f := to - 1; f >= from; f-- {
		img := image.NewRGBA(s.bounds)
		for i := range img.Pix {
			img.Pix[i] = byte(f)
		}
		if err := sink(f, img); err != nil {
			return err
		}
	}
	return nil
}

func TestWriteFramesKeepsOrder(t *testing.T) {
	src := reverseSource{bounds: image.Rect(0, 0, 2, 1)}
	var buf bytes.Buffer
	require.NoError(t, WriteFrames(context.Background(), &buf, 0, 7, 3, src))

	out := buf.Bytes()
	require.Len(t, out, 7*8)
	for f := 0; f < 7; f++ {
		assert.Equal(t, bytes.Repeat([]byte{byte(f)}, 8), out[f*8:(f+1)*8], "frame %d", f)
	}
}

func TestPackRGBASubImage(t *testing.T) {
	full := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := range full.Pix {
		full.Pix[i] = byte(i)
	}
	sub := full.SubImage(image.Rect(1, 0, 3, 2)).(*image.RGBA)

	dst := make([]byte, 2*2*4)
	packRGBA(dst, sub)
	want := append(append([]byte{}, full.Pix[4:12]...), full.Pix[20:28]...)
	assert.Equal(t, want, dst)
}

func TestExportPipesFrames(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\ncat > \"$last\"\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0755))

	l := layoutFor(t, false)
	l.TotalFrames = 5
	out := filepath.Join(dir, "out.raw")
	e := NewFFmpegExporter(Options{FFmpegPath: fake, ChunkFrames: 2}, zerolog.Nop())
	require.NoError(t, e.Export(context.Background(), l, reverseSource{bounds: image.Rect(0, 0, 4, 2)}, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, data, 5*32)
	assert.Equal(t, byte(4), data[4*32])
}

func TestExportReportsEarlyExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho \"Unknown encoder 'bogus'\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0755))

	l := layoutFor(t, false)
	l.TotalFrames = 200
	e := NewFFmpegExporter(Options{FFmpegPath: fake, VideoEncoder: "bogus", ChunkFrames: 8}, zerolog.Nop())
	err := e.Export(context.Background(), l, reverseSource{bounds: image.Rect(0, 0, 320, 180)}, filepath.Join(dir, "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown encoder 'bogus'")
}

func TestExportEmptyLayout(t *testing.T) {
	e := NewFFmpegExporter(Options{}, zerolog.Nop())
	err := e.Export(context.Background(), &timeline.Layout{}, reverseSource{}, "out.mp4")
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func ptr[T any](v T) *T { return &v }
