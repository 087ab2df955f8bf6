package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var (
	ErrMalformedPayload = errors.New("payload is not a data URI")
	ErrEmptyPayload     = errors.New("payload carries no image bytes")
	ErrImageTooLarge    = errors.New("image exceeds pixel limit")
)

// DefaultMaxPixels matches PIL's MAX_IMAGE_PIXELS.
const DefaultMaxPixels = 89478485

type ImageProcessor struct {
	log       *zap.Logger
	quality   int
	maxPixels int64
}

// NewImageProcessor builds a processor; maxPixels <= 0 selects DefaultMaxPixels.
func NewImageProcessor(log *zap.Logger, quality int, maxPixels int64) *ImageProcessor {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &ImageProcessor{log: log, quality: quality, maxPixels: maxPixels}
}

// checkSize reads only the image header in r and rejects images whose
// declared area exceeds the pixel limit, before any pixel buffer exists.
func (p *ImageProcessor) checkSize(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("invalid image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return fmt.Errorf("%w: %dx%d > %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, p.maxPixels)
	}
	return nil
}

func (p *ImageProcessor) Quality() int {
	return p.quality
}

// DecodeDataURI decodes "<prefix>,<base64>". Only the part after the first
// comma is treated as base64 raster bytes.
func (p *ImageProcessor) DecodeDataURI(payload string) (image.Image, error) {
	_, data, ok := strings.Cut(strings.TrimSpace(payload), ",")
	if !ok {
		return nil, ErrMalformedPayload
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	if err := p.checkSize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}

	p.log.Debug("Payload decoded",
		zap.Int("bytes", len(raw)),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	return img, nil
}

// ToGray drops alpha and color using ITU-R 601 luminance on un-premultiplied
// RGB. The result always starts at the origin.
func ToGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := src.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			lum := (19595*uint32(c.R) + 38470*uint32(c.G) + 7471*uint32(c.B) + 1<<15) >> 16
			dst.Pix[y*dst.Stride+x] = uint8(lum)
		}
	}
	return dst
}

// FitTo rescales m to w x h with nearest-neighbour sampling so painted
// labels stay crisp. m is returned unchanged when it already fits.
func FitTo(m *image.Gray, w, h int) *image.Gray {
	if m.Bounds().Dx() == w && m.Bounds().Dy() == h {
		return m
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Rect, m, m.Bounds(), draw.Src, nil)
	return dst
}

func BlankMask(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

// Dimensions reports the displayed size of the image in r, honoring the
// EXIF orientation tag the browser applies when rendering.
func (p *ImageProcessor) Dimensions(r io.ReadSeeker) (int, int, error) {
	if err := p.checkSize(r); err != nil {
		return 0, 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

func (p *ImageProcessor) EncodeMask(w io.Writer, m *image.Gray) error {
	return imaging.Encode(w, m, imaging.JPEG, imaging.JPEGQuality(p.quality))
}
