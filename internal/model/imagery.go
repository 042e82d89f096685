package model

import (
	"image"

	"github.com/rotisserie/eris"
)

// ImageType identifies a processed roof image layer.
type ImageType string

const (
	ImageTypeRGB  ImageType = "rgb"
	ImageTypeDSM  ImageType = "dsm"
	ImageTypeMask ImageType = "mask"
)

// RoofImageSet is the pixel-aligned image triple consumed by the classifier:
// RGB aerial imagery, a binary roof mask (roof pixel = 1), and a rendered
// elevation surface. All three share dimensions and ground-sample distance.
type RoofImageSet struct {
	RGB       image.Image
	Mask      image.Image
	Elevation image.Image
	// GSD is the ground-sample distance in meters per pixel.
	GSD float64
	// ImageryDate is the acquisition date reported by the imagery provider,
	// formatted YYYY-MM-DD. Part of the cache key.
	ImageryDate string
}

// Validate checks the pixel-alignment invariant.
func (s *RoofImageSet) Validate() error {
	if s.RGB == nil || s.Mask == nil {
		return eris.New("model: image set requires rgb and mask layers")
	}
	if s.RGB.Bounds().Dx() != s.Mask.Bounds().Dx() || s.RGB.Bounds().Dy() != s.Mask.Bounds().Dy() {
		return eris.Errorf("model: mask %dx%d not aligned with rgb %dx%d",
			s.Mask.Bounds().Dx(), s.Mask.Bounds().Dy(),
			s.RGB.Bounds().Dx(), s.RGB.Bounds().Dy())
	}
	if s.Elevation != nil &&
		(s.Elevation.Bounds().Dx() != s.RGB.Bounds().Dx() || s.Elevation.Bounds().Dy() != s.RGB.Bounds().Dy()) {
		return eris.New("model: elevation layer not aligned with rgb")
	}
	if s.GSD <= 0 {
		return eris.Errorf("model: ground-sample distance %f invalid", s.GSD)
	}
	return nil
}

// MaskCoverage returns the fraction of mask pixels marked as roof.
func (s *RoofImageSet) MaskCoverage() float64 {
	if s.Mask == nil {
		return 0
	}
	b := s.Mask.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	var roof int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := s.Mask.At(x, y).RGBA()
			// Binary mask: any lit channel counts as roof.
			if r > 0x7fff || g > 0x7fff || bl > 0x7fff {
				roof++
			}
		}
	}
	return float64(roof) / float64(total)
}

// ProcessedImage is one decoded, re-encoded imagery layer as stored on disk
// and returned to the caller.
type ProcessedImage struct {
	Type     ImageType `json:"type"`
	Filename string    `json:"filename"`
	Base64   string    `json:"base64"` // raw base64-encoded PNG bytes
	Width    int       `json:"width"`
	Height   int       `json:"height"`
}

// DataURL renders the image as a browser-ready data URL.
func (p ProcessedImage) DataURL() string {
	if p.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + p.Base64
}
