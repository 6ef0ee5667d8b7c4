package storyboard

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleJSON = `{
  "title": "Demo",
  "version": "1.0",
  "project": "demo",
  "video": {"width": 1280, "height": 720, "fps": 30},
  "style": {"background_color": "#101820", "primary_color": "#f2aa4c", "secondary_color": "#ffffff", "font_family": "Inter"},
  "scenes": [
    {"id": "intro", "type": "scenes/title", "title": "Hello", "audio_file": "intro.mp3", "audio_duration_seconds": 20,
     "sfx_cues": [{"sound": "whoosh", "frame": 0}, {"sound": "ding", "frame": 45, "volume": 0.4, "duration_frames": 12}]},
    {"id": "body", "type": "slide", "title": "Body", "audio_file": "body.mp3", "audio_duration_seconds": 30}
  ],
  "audio": {"voiceover_dir": "audio/voiceover", "buffer_between_scenes_seconds": 0.5,
            "background_music": {"path": "music/bed.mp3"}},
  "total_duration_seconds": 51
}`

func TestDecodeJSON(t *testing.T) {
	sb, err := Decode(strings.NewReader(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(sb.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(sb.Scenes))
	}
	if got := sb.Audio.Buffer(); got != 0.5 {
		t.Errorf("buffer = %v, want 0.5", got)
	}
	if got := sb.Audio.BackgroundMusic.Level(); got != DefaultMusicVolume {
		t.Errorf("music volume = %v, want default %v", got, DefaultMusicVolume)
	}

	wantCues := []SfxCue{
		{Sound: "whoosh", Frame: 0, Volume: ptr(DefaultCueVolume)},
		{Sound: "ding", Frame: 45, Volume: ptr(0.4), DurationFrames: 12},
	}
	if diff := cmp.Diff(wantCues, sb.Scenes[0].SfxCues); diff != "" {
		t.Errorf("cues mismatch (-want +got):\n%s", diff)
	}
	if err := sb.Validate(); err != nil {
		t.Errorf("sample should be valid: %v", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	sb := &Storyboard{}
	sb.Normalize()

	if sb.Video.FPS != DefaultFPS || sb.Video.Width != DefaultWidth || sb.Video.Height != DefaultHeight {
		t.Errorf("video defaults not applied: %+v", sb.Video)
	}
	if got := sb.Audio.Buffer(); got != DefaultBufferSeconds {
		t.Errorf("buffer = %v, want %v", got, DefaultBufferSeconds)
	}
}

func TestExplicitZeroBufferIsKept(t *testing.T) {
	sb, err := Decode(strings.NewReader(`{"audio": {"buffer_between_scenes_seconds": 0}}`), FormatJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := sb.Audio.Buffer(); got != 0 {
		t.Errorf("buffer = %v, want explicit 0", got)
	}
}

func TestExplicitZeroVolumeIsKept(t *testing.T) {
	doc := `{
  "scenes": [{"id": "a", "type": "title", "audio_duration_seconds": 2,
              "sfx_cues": [{"sound": "tick", "frame": 0, "volume": 0}, {"sound": "tock", "frame": 5}]}],
  "audio": {"background_music": {"path": "bed.mp3", "volume": 0}}
}`
	sb, err := Decode(strings.NewReader(doc), FormatJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := sb.Audio.BackgroundMusic.Level(); got != 0 {
		t.Errorf("music volume = %v, want explicit 0", got)
	}
	cues := sb.Scenes[0].SfxCues
	if got := cues[0].Level(); got != 0 {
		t.Errorf("muted cue volume = %v, want 0", got)
	}
	if got := cues[1].Level(); got != DefaultCueVolume {
		t.Errorf("unset cue volume = %v, want %v", got, DefaultCueVolume)
	}
	if err := sb.Validate(); err != nil {
		t.Errorf("muted storyboard should be valid: %v", err)
	}
}

func TestPlayableRejectsNonFinite(t *testing.T) {
	tests := []struct {
		seconds float64
		want    bool
	}{
		{2, true},
		{1e-11, true},
		{0, false},
		{-1, false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		if got := (SceneSpec{AudioDurationSeconds: tt.seconds}).Playable(); got != tt.want {
			t.Errorf("Playable(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestValidateRejectsInfiniteValues(t *testing.T) {
	doc := `
scenes:
  - {id: a, type: title, audio_duration_seconds: .inf}
audio:
  buffer_between_scenes_seconds: .inf
`
	sb, err := Decode(strings.NewReader(doc), FormatYAML)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	err = sb.Validate()
	if !errors.Is(err, ErrInvalidDuration) || !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("expected duration and buffer errors, got %v", err)
	}
}

func TestTypeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"title", "title"},
		{"scenes/title", "title"},
		{"org/pack/scenes/diagram", "diagram"},
		{"", ""},
		{"trailing/", ""},
	}
	for _, tt := range tests {
		if got := TypeKey(tt.in); got != tt.want {
			t.Errorf("TypeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	neg := -1.0
	sb := &Storyboard{
		Audio: AudioConfig{
			BufferBetweenScenesSeconds: &neg,
			BackgroundMusic:            &BackgroundMusic{Path: "bed.mp3", Volume: ptr(1.5)},
		},
		Scenes: []SceneSpec{
			{ID: "a", Type: "title", AudioDurationSeconds: 0},
			{ID: "a", Type: "title", AudioDurationSeconds: 3, SfxCues: []SfxCue{{Sound: "", Frame: -2, Volume: ptr(0.1)}}},
		},
	}

	err := sb.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Fields) != 6 {
		t.Errorf("expected 6 field errors, got %d: %v", len(verr.Fields), err)
	}
	for _, sentinel := range []error{ErrInvalidDuration, ErrInvalidBuffer, ErrInvalidVolume, ErrInvalidCue, ErrDuplicateID} {
		if !errors.Is(err, sentinel) {
			t.Errorf("errors.Is(err, %v) = false", sentinel)
		}
	}
}

func TestLoadYAMLRoundTrip(t *testing.T) {
	sb, err := Decode(strings.NewReader(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "storyboard.yaml")
	var buf bytes.Buffer
	if err := Write(&buf, sb, FormatYAML); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(sb, loaded); diff != "" {
		t.Errorf("yaml storyboard differs (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func ptr[T any](v T) *T { return &v }
