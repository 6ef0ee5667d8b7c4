// Package storyboard holds the declarative scene list a video is composed from.
package storyboard

import (
	"math"
	"strings"
)

const (
	DefaultBufferSeconds = 1.0
	DefaultCueVolume     = 0.1
	DefaultMusicVolume   = 0.1
	DefaultFPS           = 30
	DefaultWidth         = 1920
	DefaultHeight        = 1080
)

// Storyboard is the full composition document.
type Storyboard struct {
	Title                string      `json:"title" yaml:"title"`
	Description          string      `json:"description,omitempty" yaml:"description,omitempty"`
	Version              string      `json:"version,omitempty" yaml:"version,omitempty"`
	Project              string      `json:"project,omitempty" yaml:"project,omitempty"`
	Video                VideoConfig `json:"video" yaml:"video"`
	Style                StyleConfig `json:"style" yaml:"style"`
	Scenes               []SceneSpec `json:"scenes" yaml:"scenes"`
	Audio                AudioConfig `json:"audio" yaml:"audio"`
	TotalDurationSeconds float64     `json:"total_duration_seconds" yaml:"total_duration_seconds"`
}

// SceneSpec is one narrated unit of the video.
type SceneSpec struct {
	ID                   string   `json:"id" yaml:"id"`
	Type                 string   `json:"type" yaml:"type"`
	Title                string   `json:"title" yaml:"title"`
	AudioFile            string   `json:"audio_file" yaml:"audio_file"`
	AudioDurationSeconds float64  `json:"audio_duration_seconds" yaml:"audio_duration_seconds"`
	SfxCues              []SfxCue `json:"sfx_cues,omitempty" yaml:"sfx_cues,omitempty"`
}

// SfxCue places a sound effect relative to the start of its scene.
type SfxCue struct {
	Sound          string   `json:"sound" yaml:"sound"`
	Frame          int      `json:"frame" yaml:"frame"`
	Volume         *float64 `json:"volume,omitempty" yaml:"volume,omitempty"` // nil: DefaultCueVolume
	DurationFrames int      `json:"duration_frames,omitempty" yaml:"duration_frames,omitempty"`
}

type AudioConfig struct {
	VoiceoverDir               string           `json:"voiceover_dir" yaml:"voiceover_dir"`
	BufferBetweenScenesSeconds *float64         `json:"buffer_between_scenes_seconds,omitempty" yaml:"buffer_between_scenes_seconds,omitempty"`
	BackgroundMusic            *BackgroundMusic `json:"background_music,omitempty" yaml:"background_music,omitempty"`
}

type BackgroundMusic struct {
	Path   string   `json:"path" yaml:"path"`
	Volume *float64 `json:"volume,omitempty" yaml:"volume,omitempty"` // nil: DefaultMusicVolume
}

// VideoConfig and StyleConfig are presentation only; the timeline math never reads them
// except for FPS.
type VideoConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	FPS    int `json:"fps" yaml:"fps"`
}

type StyleConfig struct {
	BackgroundColor string `json:"background_color" yaml:"background_color"`
	PrimaryColor    string `json:"primary_color" yaml:"primary_color"`
	SecondaryColor  string `json:"secondary_color" yaml:"secondary_color"`
	FontFamily      string `json:"font_family" yaml:"font_family"`
}

// TypeKey returns the capability lookup key: the trailing "/" segment of Type.
func (s SceneSpec) TypeKey() string {
	return TypeKey(s.Type)
}

// TypeKey accepts both fully qualified ("scenes/title") and bare ("title") keys.
func TypeKey(t string) string {
	if i := strings.LastIndex(t, "/"); i >= 0 {
		return t[i+1:]
	}
	return t
}

// Playable reports whether the scene can take part in a timeline: its audio
// duration is positive and finite.
func (s SceneSpec) Playable() bool {
	return s.AudioDurationSeconds > 0 && !math.IsInf(s.AudioDurationSeconds, 1)
}

// Level is the cue volume; an explicit 0 mutes the cue.
func (c SfxCue) Level() float64 {
	if c.Volume == nil {
		return DefaultCueVolume
	}
	return *c.Volume
}

// Level is the bed's target volume; an explicit 0 mutes the bed.
func (m BackgroundMusic) Level() float64 {
	if m.Volume == nil {
		return DefaultMusicVolume
	}
	return *m.Volume
}

// Buffer returns the silence appended after each narration.
func (a AudioConfig) Buffer() float64 {
	if a.BufferBetweenScenesSeconds == nil {
		return DefaultBufferSeconds
	}
	return *a.BufferBetweenScenesSeconds
}

// Normalize fills documented defaults in place. It never changes explicitly set values.
func (sb *Storyboard) Normalize() {
	if sb.Video.FPS <= 0 {
		sb.Video.FPS = DefaultFPS
	}
	if sb.Video.Width <= 0 {
		sb.Video.Width = DefaultWidth
	}
	if sb.Video.Height <= 0 {
		sb.Video.Height = DefaultHeight
	}
	if sb.Audio.BufferBetweenScenesSeconds == nil {
		b := DefaultBufferSeconds
		sb.Audio.BufferBetweenScenesSeconds = &b
	}
	if m := sb.Audio.BackgroundMusic; m != nil && m.Volume == nil {
		v := DefaultMusicVolume
		m.Volume = &v
	}
	for i := range sb.Scenes {
		for j := range sb.Scenes[i].SfxCues {
			if c := &sb.Scenes[i].SfxCues[j]; c.Volume == nil {
				v := DefaultCueVolume
				c.Volume = &v
			}
		}
	}
}
