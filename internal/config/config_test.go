package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"STORYREEL_STORYBOARD", "STORYREEL_OUTPUT_DIR", "STORYREEL_FPS", "STORYREEL_WORKERS",
		"STORYREEL_TRANSITION_FRAMES", "STORYREEL_SFX_DIR", "STORYREEL_LOG_LEVEL",
		"STORYREEL_METRICS_ADDR", "STORYREEL_FFMPEG",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storyreel.yaml")
	data := `
storyboard: project/storyboard.json
fps: 24
workers: 3
transition_frames: 12
capabilities:
  title: {kind: title}
  deck:
    kind: slide
    path: slides/deck.pdf
    page: 2
    zoom_mode: top-left
  cta:
    kind: qr
    content: https://example.com
export:
  video_encoder: h264_nvenc
  quality: 28
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FPS != 24 || cfg.Workers != 3 || cfg.TransitionFrames != 12 {
		t.Errorf("numeric fields not loaded: %+v", cfg)
	}
	if cfg.DefaultSfxFrames != 30 {
		t.Errorf("unset field should keep default, got %d", cfg.DefaultSfxFrames)
	}
	want := Capability{Kind: KindSlide, Path: "slides/deck.pdf", Page: 2, ZoomMode: "top-left"}
	if diff := cmp.Diff(want, cfg.Capabilities["deck"]); diff != "" {
		t.Errorf("deck capability (-want +got):\n%s", diff)
	}
	if cfg.Export.VideoEncoder != "h264_nvenc" || cfg.Export.FFmpegPath != "ffmpeg" {
		t.Errorf("export section not merged: %+v", cfg.Export)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config should be valid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORYREEL_FPS", "60")
	t.Setenv("STORYREEL_WORKERS", "7")
	t.Setenv("STORYREEL_SFX_DIR", "/srv/sfx")
	t.Setenv("STORYREEL_TRANSITION_FRAMES", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FPS != 60 || cfg.Workers != 7 || cfg.SfxDir != "/srv/sfx" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.TransitionFrames != 20 {
		t.Errorf("malformed env value should keep default, got %d", cfg.TransitionFrames)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.FPS = -1
	cfg.TransitionFrames = -5
	cfg.Capabilities["deck"] = Capability{Kind: KindSlide}
	cfg.Capabilities["cta"] = Capability{Kind: KindQR}
	cfg.Capabilities["odd"] = Capability{Kind: "hologram"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"fps", "transition_frames", "deck.path", "cta.content", `"hologram"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Fields) != 5 {
		t.Errorf("expected 5 field errors, got %d: %v", len(verr.Fields), err)
	}
	for _, sentinel := range []error{ErrNegative, ErrRequired, ErrUnknownKind} {
		if !errors.Is(err, sentinel) {
			t.Errorf("errors.Is(err, %v) = false", sentinel)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Workers = 5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Workers != 5 {
		t.Errorf("Workers = %d, want 5", loaded.Workers)
	}

	// Saving again replaces the file in place.
	loaded.Workers = 9
	if err := loaded.Save(path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again.Workers != 9 {
		t.Errorf("Workers = %d, want 9", again.Workers)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the config file, found %d entries", len(entries))
	}
}
