package timeline

import "path/filepath"

// DefaultSfxFrames is the length of a sound effect cue without an explicit duration.
const DefaultSfxFrames = 30

// VoiceSpan is one narration clip on the audio track.
type VoiceSpan struct {
	Index   int    `json:"index" yaml:"index"`
	SceneID string `json:"scene_id" yaml:"scene_id"`
	File    string `json:"file" yaml:"file"`
	Offset  int    `json:"offset" yaml:"offset"`
	// Frames covers narration plus the trailing buffer.
	Frames int `json:"frames" yaml:"frames"`
	// VoiceFrames covers the narration alone.
	VoiceFrames int `json:"voice_frames" yaml:"voice_frames"`
}

func (v VoiceSpan) End() int { return v.Offset + v.Frames }

// SequenceAudio places narration clips one after another. The running offset is
// independent of the visual track: it advances by each span's frames minus the
// transition it overlaps, so narrations never sound together during a crossfade.
func SequenceAudio(spans []Span, fps int, voiceoverDir string) []VoiceSpan {
	if len(spans) == 0 {
		return nil
	}

	voice := make([]VoiceSpan, len(spans))
	offset := 0
	last := len(spans) - 1
	for i, s := range spans {
		advance := s.Frames
		if i < last {
			advance -= s.Pad
		}
		mustNonNegative("audio advance", advance)

		voice[i] = VoiceSpan{
			Index:       i,
			SceneID:     s.Scene.ID,
			File:        voiceFile(voiceoverDir, s.Scene.AudioFile),
			Offset:      offset,
			Frames:      advance,
			VoiceFrames: FramesFor(s.Scene.AudioDurationSeconds, fps),
		}
		offset += advance
	}
	return voice
}

// AudioOffsets returns the narration start frame of every span.
func AudioOffsets(voice []VoiceSpan) []int {
	out := make([]int, len(voice))
	for i, v := range voice {
		out[i] = v.Offset
	}
	return out
}

func voiceFile(dir, file string) string {
	if file == "" || dir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// Cue is a sound effect placed on the absolute timeline.
type Cue struct {
	SceneIndex int     `json:"scene_index" yaml:"scene_index"`
	Sound      string  `json:"sound" yaml:"sound"`
	File       string  `json:"file" yaml:"file"`
	Start      int     `json:"start" yaml:"start"`
	Frames     int     `json:"frames" yaml:"frames"`
	Volume     float64 `json:"volume" yaml:"volume"`
}

func (c Cue) End() int { return c.Start + c.Frames }

// CueOptions controls how sound keys become files and how long cues last.
type CueOptions struct {
	Dir           string
	Ext           string
	DefaultFrames int
}

// PlaceCues schedules every scene's sfx cues relative to its narration offset.
func PlaceCues(spans []Span, voice []VoiceSpan, opts CueOptions) []Cue {
	var cues []Cue
	for i, s := range spans {
		for _, c := range s.Scene.SfxCues {
			frames := c.DurationFrames
			if frames <= 0 {
				frames = opts.DefaultFrames
			}
			if frames <= 0 {
				frames = DefaultSfxFrames
			}
			cues = append(cues, Cue{
				SceneIndex: i,
				Sound:      c.Sound,
				File:       sfxFile(opts, c.Sound),
				Start:      voice[i].Offset + c.Frame,
				Frames:     frames,
				Volume:     c.Level(),
			})
		}
	}
	return cues
}

func sfxFile(opts CueOptions, sound string) string {
	name := sound
	if filepath.Ext(name) == "" {
		ext := opts.Ext
		if ext == "" {
			ext = ".mp3"
		}
		name += ext
	}
	if opts.Dir == "" {
		return name
	}
	return filepath.Join(opts.Dir, name)
}
