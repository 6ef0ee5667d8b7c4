package storyboard

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidDuration = errors.New("audio duration must be positive")
	ErrInvalidBuffer   = errors.New("buffer between scenes must not be negative")
	ErrInvalidVolume   = errors.New("volume must be within [0, 1]")
	ErrInvalidCue      = errors.New("invalid sfx cue")
	ErrDuplicateID     = errors.New("duplicate scene id")
)

// FieldError describes one rejected field.
type FieldError struct {
	Field string
	Err   error
	Value any
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v (got %v)", e.Field, e.Err, e.Value)
}

func (e FieldError) Unwrap() error { return e.Err }

// ValidationError bundles every field error found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid storyboard: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i := range e.Fields {
		errs[i] = e.Fields[i]
	}
	return errs
}

// Validate checks the invariants the timeline relies on. An empty scene list is valid.
func (sb *Storyboard) Validate() error {
	var fields []FieldError
	add := func(field string, err error, v any) {
		fields = append(fields, FieldError{Field: field, Err: err, Value: v})
	}

	if b := sb.Audio.Buffer(); !ValidBuffer(b) {
		add("audio.buffer_between_scenes_seconds", ErrInvalidBuffer, b)
	}
	if m := sb.Audio.BackgroundMusic; m != nil {
		if v := m.Level(); !validVolume(v) {
			add("audio.background_music.volume", ErrInvalidVolume, v)
		}
		if m.Path == "" {
			add("audio.background_music.path", errors.New("path is required"), m.Path)
		}
	}

	seen := make(map[string]int, len(sb.Scenes))
	for i, s := range sb.Scenes {
		prefix := fmt.Sprintf("scenes[%d]", i)
		if s.ID != "" {
			if prev, ok := seen[s.ID]; ok {
				add(prefix+".id", fmt.Errorf("%w (first at scenes[%d])", ErrDuplicateID, prev), s.ID)
			} else {
				seen[s.ID] = i
			}
		}
		if !s.Playable() {
			add(prefix+".audio_duration_seconds", ErrInvalidDuration, s.AudioDurationSeconds)
		}
		for j, c := range s.SfxCues {
			cp := fmt.Sprintf("%s.sfx_cues[%d]", prefix, j)
			if c.Sound == "" {
				add(cp+".sound", fmt.Errorf("%w: sound is required", ErrInvalidCue), c.Sound)
			}
			if c.Frame < 0 {
				add(cp+".frame", fmt.Errorf("%w: frame must not be negative", ErrInvalidCue), c.Frame)
			}
			if c.DurationFrames < 0 {
				add(cp+".duration_frames", fmt.Errorf("%w: duration must not be negative", ErrInvalidCue), c.DurationFrames)
			}
			if v := c.Level(); !validVolume(v) {
				add(cp+".volume", ErrInvalidVolume, v)
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidBuffer reports whether b is a usable buffer length: finite and not negative.
func ValidBuffer(b float64) bool {
	return b >= 0 && !math.IsInf(b, 1)
}

func validVolume(v float64) bool {
	return v >= 0 && v <= 1
}
