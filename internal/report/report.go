// Package report writes a reviewable YAML summary of a computed layout.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/storyreel/internal/storyboard"
	"github.com/ivlev/storyreel/internal/system"
	"github.com/ivlev/storyreel/internal/timeline"
)

const Version = "1"

type Report struct {
	Version     string    `yaml:"version"`
	RunID       string    `yaml:"run_id,omitempty"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Storyboard  string    `yaml:"storyboard,omitempty"`
	Title       string    `yaml:"title"`

	FPS              int `yaml:"fps"`
	Width            int `yaml:"width"`
	Height           int `yaml:"height"`
	TransitionFrames int `yaml:"transition_frames"`

	TotalFrames     int     `yaml:"total_frames"`
	DurationSeconds float64 `yaml:"duration_seconds"`
	DeclaredSeconds float64 `yaml:"declared_seconds,omitempty"`

	Scenes   []Scene              `yaml:"scenes"`
	Cues     []timeline.Cue       `yaml:"cues,omitempty"`
	Bed      *Bed                 `yaml:"bed,omitempty"`
	Rejected []timeline.Rejection `yaml:"rejected,omitempty"`
	Warnings []string             `yaml:"warnings,omitempty"`
	Stats    *system.Stats        `yaml:"stats,omitempty"`
}

// Scene joins a visual span with its narration span.
type Scene struct {
	Index         int                  `yaml:"index"`
	ID            string               `yaml:"id"`
	Type          string               `yaml:"type"`
	Missing       bool                 `yaml:"missing,omitempty"`
	ShortSpan     bool                 `yaml:"short_span,omitempty"`
	ContentFrames int                  `yaml:"content_frames"`
	Pad           int                  `yaml:"pad"`
	Frames        int                  `yaml:"frames"`
	VisualOffset  int                  `yaml:"visual_offset"`
	Start         int                  `yaml:"start"`
	AudioOffset   int                  `yaml:"audio_offset"`
	VoiceFrames   int                  `yaml:"voice_frames"`
	VoiceFile     string               `yaml:"voice_file,omitempty"`
	Transition    *timeline.Transition `yaml:"transition,omitempty"`
}

type Bed struct {
	Path          string      `yaml:"path"`
	Volume        float64     `yaml:"volume"`
	FadeInFrames  int         `yaml:"fade_in_frames"`
	FadeOutFrames int         `yaml:"fade_out_frames"`
	Samples       []BedSample `yaml:"samples"`
}

type BedSample struct {
	Frame  int     `yaml:"frame"`
	Volume float64 `yaml:"volume"`
}

// FromLayout summarizes l. sb may be nil.
func FromLayout(l *timeline.Layout, sb *storyboard.Storyboard) *Report {
	r := &Report{
		Version:          Version,
		GeneratedAt:      time.Now().UTC().Truncate(time.Second),
		FPS:              l.FPS,
		Width:            l.Width,
		Height:           l.Height,
		TransitionFrames: l.TransitionFrames,
		TotalFrames:      l.TotalFrames,
		DurationSeconds:  l.DurationSeconds,
		Cues:             l.Cues,
		Rejected:         l.Rejected,
		Warnings:         l.Warnings,
	}
	if sb != nil {
		r.Title = sb.Title
		r.DeclaredSeconds = sb.TotalDurationSeconds
	}

	for i, s := range l.Spans {
		sc := Scene{
			Index:         i,
			ID:            s.Scene.ID,
			Type:          s.Scene.Type,
			Missing:       s.Missing,
			ShortSpan:     s.ShortSpan,
			ContentFrames: s.ContentFrames,
			Pad:           s.Pad,
			Frames:        s.Frames,
			VisualOffset:  s.VisualOffset,
			Start:         s.Start,
			Transition:    s.Transition,
		}
		if i < len(l.Voice) {
			v := l.Voice[i]
			sc.AudioOffset = v.Offset
			sc.VoiceFrames = v.VoiceFrames
			sc.VoiceFile = v.File
		}
		r.Scenes = append(r.Scenes, sc)
	}

	if b := l.Bed; b != nil {
		r.Bed = &Bed{
			Path:          b.Path,
			Volume:        b.Volume,
			FadeInFrames:  b.FadeInFrames,
			FadeOutFrames: b.FadeOutFrames,
			Samples:       bedSamples(b, l.FPS),
		}
	}
	return r
}

// bedSamples reads the envelope once per second plus the final frame.
func bedSamples(b *timeline.Bed, fps int) []BedSample {
	if b.TotalFrames <= 0 || fps <= 0 {
		return nil
	}
	var out []BedSample
	for f := 0; f < b.TotalFrames; f += fps {
		out = append(out, BedSample{Frame: f, Volume: b.VolumeAt(f)})
	}
	if last := b.TotalFrames - 1; out[len(out)-1].Frame != last {
		out = append(out, BedSample{Frame: last, Volume: b.VolumeAt(last)})
	}
	return out
}

// Write stores the report atomically: readers never see a partial file.
func Write(r *Report, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}

func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// Path names a report after the storyboard title inside dir.
func Path(dir, title string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if name == "" {
		name = "storyboard"
	}
	return filepath.Join(dir, name+".layout.yaml")
}
