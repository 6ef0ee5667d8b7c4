// Package source rasterizes the pages that slide scenes are drawn from.
package source

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is used when a slide capability does not set one.
const DefaultDPI = 150

var ErrPageOutOfRange = errors.New("page out of range")

type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks the source implementation from the path: PDF documents go through
// MuPDF, anything else is treated as an image file or a directory of images.
func Open(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	if index < 0 || index >= f.PageCount() {
		return 0, 0, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, f.PageCount())
	}
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens a private document handle: a fitz.Document must not be used
// from two goroutines at once.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= f.PageCount() {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, f.PageCount())
	}
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// Cache rasterizes each page at most once. Pages are rendered lazily by the
// first frame that needs them; concurrent callers wait for that render.
type Cache struct {
	src   Source
	dpi   int
	pages []cachedPage
}

type cachedPage struct {
	once sync.Once
	img  image.Image
	err  error
}

func NewCache(src Source, dpi int) *Cache {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Cache{src: src, dpi: dpi, pages: make([]cachedPage, src.PageCount())}
}

func (c *Cache) PageCount() int { return len(c.pages) }

func (c *Cache) Page(index int) (image.Image, error) {
	if index < 0 || index >= len(c.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(c.pages))
	}
	p := &c.pages[index]
	p.once.Do(func() {
		p.img, p.err = c.src.RenderPage(index, c.dpi)
		if p.err != nil {
			p.err = fmt.Errorf("render page %d: %w", index, p.err)
		}
	})
	return p.img, p.err
}

// Dimensions reports a page's size without rasterizing it: points for PDF
// pages, pixels for images.
func (c *Cache) Dimensions(index int) (width, height float64, err error) {
	if index < 0 || index >= len(c.pages) {
		return 0, 0, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(c.pages))
	}
	return c.src.GetPageDimensions(index)
}

func (c *Cache) Close() error {
	return c.src.Close()
}
