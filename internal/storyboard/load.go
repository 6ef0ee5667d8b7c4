package storyboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension. JSON is the default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, decodes and normalizes a storyboard file. It does not validate it.
func Load(path string) (*Storyboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storyboard: %w", err)
	}
	sb, err := Decode(bytes.NewReader(data), FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("decode storyboard %s: %w", filepath.Base(path), err)
	}
	return sb, nil
}

// Decode parses a storyboard document and applies defaults.
func Decode(r io.Reader, format Format) (*Storyboard, error) {
	var sb Storyboard
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&sb); err != nil && err != io.EOF {
			return nil, err
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&sb); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storyboard format %q", format)
	}
	sb.Normalize()
	return &sb, nil
}

// Write encodes the storyboard in the given format.
func Write(w io.Writer, sb *Storyboard, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sb); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sb)
	default:
		return fmt.Errorf("unsupported storyboard format %q", format)
	}
}
