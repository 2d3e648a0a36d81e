package source

import (
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/greenscreen/internal/chroma"
	"github.com/ivlev/greenscreen/internal/media"
)

// Source is a paged set of stills a background can be taken from.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a PDF or image source by the path's extension.
func Open(path string) (Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

// LoadBackground opens path and renders one page as a BGR raster. Any
// failure is reported as media.ErrInvalidBackground.
func LoadBackground(path string, page, dpi int) (*chroma.Image, error) {
	src, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", media.ErrInvalidBackground, path, err)
	}
	defer src.Close()

	return renderPage(src, path, page, dpi, media.ErrInvalidBackground)
}

// LoadForeground is LoadBackground for the keyed still.
func LoadForeground(path string) (*chroma.Image, error) {
	src, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", media.ErrInvalidForeground, path, err)
	}
	defer src.Close()

	return renderPage(src, path, 0, 0, media.ErrInvalidForeground)
}

func renderPage(src Source, path string, page, dpi int, kind error) (*chroma.Image, error) {
	n := src.PageCount()
	if n == 0 {
		return nil, fmt.Errorf("%w: %s: no pages or images", kind, path)
	}
	if page < 0 || page >= n {
		return nil, fmt.Errorf("%w: %s: page %d out of range [0,%d)", kind, path, page, n)
	}

	w, h, err := src.GetPageDimensions(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kind, path, err)
	}
	if n > 1 {
		fmt.Printf("[*] %s: страница %d/%d (%.0fx%.0f)\n", path, page+1, n, w, h)
	}

	img, err := src.RenderPage(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kind, path, err)
	}
	return chroma.FromImage(img), nil
}

type FitzPDFSource struct {
	doc *fitz.Document
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if dpi <= 0 {
		dpi = 150
	}
	return f.doc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
