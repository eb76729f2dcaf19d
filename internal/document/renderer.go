package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// baseDPI is the rendering resolution at zoom factor 1.0.
const baseDPI = 72.0

// Doc is an open document whose pages can be rendered to images.
type Doc interface {
	// PageCount returns the number of pages in the document
	PageCount() int
	// RenderPage rasterizes the 0-based page at the given zoom factor
	RenderPage(index int, zoom float64) (image.Image, error)
	// Close releases the document's resources
	Close() error
}

// Renderer opens documents for page rendering.
type Renderer interface {
	Open(path string) (Doc, error)
}

// FitzRenderer renders PDFs through go-fitz and treats standalone image
// files (PNG, JPEG, GIF, HEIC) as single-page documents.
type FitzRenderer struct{}

// NewFitzRenderer creates a FitzRenderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open opens the document at path.
func (r *FitzRenderer) Open(path string) (Doc, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		doc, err := fitz.New(path)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		return &pdfDoc{doc: doc}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image document: %w", err)
	}

	var img image.Image
	if isHEICFormat(data) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}
	return &imageDoc{img: img}, nil
}

// pdfDoc renders PDF pages via go-fitz.
type pdfDoc struct {
	doc *fitz.Document
}

func (d *pdfDoc) PageCount() int {
	return d.doc.NumPage()
}

func (d *pdfDoc) RenderPage(index int, zoom float64) (image.Image, error) {
	if index < 0 || index >= d.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (%d pages)", index, d.doc.NumPage())
	}
	img, err := d.doc.ImageDPI(index, baseDPI*zoom)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

func (d *pdfDoc) Close() error {
	return d.doc.Close()
}

// imageDoc presents a decoded image file as a one-page document. Zoom is
// applied by the viewer, not by re-decoding.
type imageDoc struct {
	img image.Image
}

func (d *imageDoc) PageCount() int {
	return 1
}

func (d *imageDoc) RenderPage(index int, zoom float64) (image.Image, error) {
	if index != 0 {
		return nil, fmt.Errorf("page %d out of range (1 page)", index)
	}
	return d.img, nil
}

func (d *imageDoc) Close() error {
	return nil
}

// EncodePNG encodes a rendered page for transport.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files typically start with specific magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}
