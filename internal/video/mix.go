package video

import (
	"fmt"
	"strings"

	"github.com/ivlev/storyreel/internal/timeline"
)

// AudioInput is one ffmpeg audio input.
type AudioInput struct {
	Path string
	Loop bool
}

// AudioMix is the filter graph that lays the narration, sound effects and
// music bed of a layout onto one track.
type AudioMix struct {
	Inputs []AudioInput
	Filter string
	// Label is the filter output to map, e.g. "[aout]".
	Label string
}

// BuildAudioMix returns nil when the layout has no audio. firstInput is the
// ffmpeg input index of the first audio input (the video stream usually takes
// index 0).
func BuildAudioMix(l *timeline.Layout, firstInput int) *AudioMix {
	if l.Empty() || l.FPS <= 0 {
		return nil
	}
	fps := float64(l.FPS)
	seconds := func(frames int) float64 { return float64(frames) / fps }

	mix := &AudioMix{Label: "[aout]"}
	var chains, labels []string
	add := func(in AudioInput, chain, label string) {
		idx := firstInput + len(mix.Inputs)
		mix.Inputs = append(mix.Inputs, in)
		chains = append(chains, fmt.Sprintf("[%d:a]%s%s", idx, chain, label))
		labels = append(labels, label)
	}

	for _, v := range l.Voice {
		if v.File == "" {
			continue
		}
		// Narration is cut at its span so it never runs into the next scene.
		add(AudioInput{Path: v.File},
			fmt.Sprintf("atrim=0:%s,asetpts=PTS-STARTPTS,%s", num(seconds(v.Frames)), delay(seconds(v.Offset))),
			fmt.Sprintf("[v%d]", v.Index))
	}
	for i, c := range l.Cues {
		add(AudioInput{Path: c.File},
			fmt.Sprintf("atrim=0:%s,asetpts=PTS-STARTPTS,volume=%s,%s",
				num(seconds(c.Frames)), num(c.Volume), delay(seconds(c.Start))),
			fmt.Sprintf("[c%d]", i))
	}
	if b := l.Bed; b != nil {
		add(AudioInput{Path: b.Path, Loop: b.Loop},
			fmt.Sprintf("atrim=0:%s,asetpts=PTS-STARTPTS,volume='%s':eval=frame",
				num(seconds(b.TotalFrames)), BedVolumeExpr(b, l.FPS)),
			"[bed]")
	}
	if len(mix.Inputs) == 0 {
		return nil
	}

	total := num(seconds(l.TotalFrames))
	chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=longest:normalize=0,apad,atrim=0:%s%s",
		strings.Join(labels, ""), len(labels), total, mix.Label))
	mix.Filter = strings.Join(chains, ";")
	return mix
}

// BedVolumeExpr is the bed envelope as an ffmpeg expression over t, matching
// Bed.VolumeAt: smoothstep fades, the smaller of fade-in and fade-out wins.
func BedVolumeExpr(b *timeline.Bed, fps int) string {
	f := float64(fps)
	in := float64(max(b.FadeInFrames, 1)) / f
	out := float64(max(b.FadeOutFrames, 1)) / f
	end := float64(b.TotalFrames) / f
	return fmt.Sprintf("%s*min(%s,%s)",
		num(b.Volume),
		smoothstepExpr(fmt.Sprintf("t/%s", num(in))),
		smoothstepExpr(fmt.Sprintf("(%s-t)/%s", num(end), num(out))))
}

func smoothstepExpr(x string) string {
	c := fmt.Sprintf("clip(%s,0,1)", x)
	return fmt.Sprintf("%s*%s*(3-2*%s)", c, c, c)
}

func delay(sec float64) string {
	return fmt.Sprintf("adelay=%d:all=1", int64(sec*1000+0.5))
}

func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
