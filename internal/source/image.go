package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrNoImages = errors.New("no images found")

type ImageSource struct {
	paths []string
}

// NewImageSource accepts a single image or a directory; a directory's images
// become pages in file name order.
func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImage(entry.Name()) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoImages, path)
		}
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths}, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return true
	}
	return false
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) open(index int) (*os.File, error) {
	if index < 0 || index >= len(s.paths) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(s.paths))
	}
	return os.Open(s.paths[index])
}

func (s *ImageSource) GetPageDimensions(index int) (float64, float64, error) {
	f, err := s.open(index)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", s.paths[index], err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage ignores dpi: images are used at their native resolution.
func (s *ImageSource) RenderPage(index int, _ int) (image.Image, error) {
	f, err := s.open(index)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.paths[index], err)
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}
