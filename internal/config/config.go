package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	StoryboardPath   string `yaml:"storyboard"`
	OutputDir        string `yaml:"output_dir"`
	FPS              int    `yaml:"fps"` // 0: use the storyboard's fps
	Workers          int    `yaml:"workers"`
	TransitionFrames int    `yaml:"transition_frames"`
	DefaultSfxFrames int    `yaml:"default_sfx_frames"`
	SfxDir           string `yaml:"sfx_dir"`
	LogLevel         string `yaml:"log_level"`
	MetricsAddr      string `yaml:"metrics_addr"`
	ShowStats        bool   `yaml:"show_stats"`
	ProbeAudio       bool   `yaml:"probe_audio"`

	Capabilities map[string]Capability `yaml:"capabilities"`
	Export       ExportConfig          `yaml:"export"`

	BuildVersion string `yaml:"-"`
}

// Capability describes how to draw one scene type.
type Capability struct {
	Kind     string  `yaml:"kind"` // title, slide, qr
	Path     string  `yaml:"path,omitempty"`
	Page     int     `yaml:"page,omitempty"`
	DPI      int     `yaml:"dpi,omitempty"`
	Content  string  `yaml:"content,omitempty"`
	ZoomMode string  `yaml:"zoom_mode,omitempty"`
	Zoom     float64 `yaml:"zoom,omitempty"`
}

type ExportConfig struct {
	FFmpegPath   string `yaml:"ffmpeg"`
	FFprobePath  string `yaml:"ffprobe"`
	VideoEncoder string `yaml:"video_encoder"`
	Quality      int    `yaml:"quality"`
	AudioCodec   string `yaml:"audio_codec"`
}

const (
	KindTitle = "title"
	KindSlide = "slide"
	KindQR    = "qr"
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		OutputDir:        "output",
		TransitionFrames: 20,
		DefaultSfxFrames: 30,
		SfxDir:           "audio/sfx",
		LogLevel:         "info",
		Capabilities: map[string]Capability{
			"title":   {Kind: KindTitle},
			"outro":   {Kind: KindTitle},
			"section": {Kind: KindTitle},
		},
		Export: ExportConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			VideoEncoder: "libx264",
			Quality:      23,
			AudioCodec:   "aac",
		},
	}
}

// Load reads configuration from path (or the first candidate file when path is
// empty), then applies STORYREEL_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the configuration as YAML, atomically replacing path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}

func findConfigFile() string {
	candidates := []string{
		"./storyreel.yaml",
		"./storyreel.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".storyreel", "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	c.StoryboardPath = envStr("STORYREEL_STORYBOARD", c.StoryboardPath)
	c.OutputDir = envStr("STORYREEL_OUTPUT_DIR", c.OutputDir)
	c.FPS = envInt("STORYREEL_FPS", c.FPS)
	c.Workers = envInt("STORYREEL_WORKERS", c.Workers)
	c.TransitionFrames = envInt("STORYREEL_TRANSITION_FRAMES", c.TransitionFrames)
	c.SfxDir = envStr("STORYREEL_SFX_DIR", c.SfxDir)
	c.LogLevel = envStr("STORYREEL_LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = envStr("STORYREEL_METRICS_ADDR", c.MetricsAddr)
	c.Export.FFmpegPath = envStr("STORYREEL_FFMPEG", c.Export.FFmpegPath)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var (
	ErrNegative    = errors.New("must not be negative")
	ErrRequired    = errors.New("is required")
	ErrUnknownKind = errors.New("unknown capability kind")
)

// FieldError describes one rejected setting.
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
	return "invalid config: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i := range e.Fields {
		errs[i] = e.Fields[i]
	}
	return errs
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var fields []FieldError
	add := func(field string, err error, v any) {
		fields = append(fields, FieldError{Field: field, Err: err, Value: v})
	}
	nonNegative := func(field string, v int) {
		if v < 0 {
			add(field, ErrNegative, v)
		}
	}

	nonNegative("fps", c.FPS)
	nonNegative("workers", c.Workers)
	nonNegative("transition_frames", c.TransitionFrames)
	nonNegative("default_sfx_frames", c.DefaultSfxFrames)

	keys := make([]string, 0, len(c.Capabilities))
	for k := range c.Capabilities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		capCfg := c.Capabilities[key]
		field := "capabilities." + key
		switch capCfg.Kind {
		case KindTitle:
		case KindSlide:
			if capCfg.Path == "" {
				add(field+".path", ErrRequired, capCfg.Path)
			}
			nonNegative(field+".page", capCfg.Page)
		case KindQR:
			if capCfg.Content == "" {
				add(field+".content", ErrRequired, capCfg.Content)
			}
		default:
			add(field+".kind", ErrUnknownKind, fmt.Sprintf("%q", capCfg.Kind))
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
