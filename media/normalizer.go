package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	DefaultWidth   = 400
	DefaultHeight  = 400
	DefaultQuality = 85
	// DefaultMaxPixels rejects decompression bombs before the full decode.
	DefaultMaxPixels = 50_000_000

	CanonicalContentType = "image/jpeg"
	CanonicalExtension   = ".jpg"
)

type NormalizeOptions struct {
	Width     int
	Height    int
	Quality   int
	MaxPixels int
}

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// Normalized is the canonical rendition of an upload.
type Normalized struct {
	Data         []byte
	Width        int
	Height       int
	ContentType  string
	SourceFormat string
}

// Normalizer converts any supported image into a Width x Height JPEG.
//
// Cropping policy is "cover": the source is scaled so its shorter side fills the box,
// the overflow on the longer side is cropped equally from both ends, and the result is
// resampled with Catmull-Rom. Transparent pixels are composited over white because
// JPEG has no alpha channel. The same input always yields the same output bytes.
type Normalizer struct {
	decoders *Registry
	opts     NormalizeOptions
}

func NewNormalizer(decoders *Registry, opts NormalizeOptions) *Normalizer {
	if decoders == nil {
		decoders = DefaultRegistry()
	}
	return &Normalizer{decoders: decoders, opts: opts.withDefaults()}
}

func (n *Normalizer) Options() NormalizeOptions { return n.opts }

// Decode sniffs the format and decodes the image. Any failure is a *DecodeError.
func (n *Normalizer) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Err: fmt.Errorf("%w: empty payload", ErrUnknownFormat)}
	}
	dec, _, err := n.decoders.Sniff(data)
	if err != nil {
		return nil, "", err
	}
	cfg, err := safeDecodeConfig(dec, data)
	if err != nil {
		return nil, dec.Format(), err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, dec.Format(), &DecodeError{Format: dec.Format(), Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(n.opts.MaxPixels) {
		return nil, dec.Format(), &DecodeError{Format: dec.Format(), Err: fmt.Errorf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, n.opts.MaxPixels)}
	}
	img, err := safeDecode(dec, data)
	if err != nil {
		return nil, dec.Format(), err
	}
	return img, dec.Format(), nil
}

// Resize crops and scales img to the canonical box.
func (n *Normalizer) Resize(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, n.opts.Width, n.opts.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, coverRect(img.Bounds(), n.opts.Width, n.opts.Height), draw.Over, nil)
	return dst
}

// Encode writes img as JPEG at the configured quality.
func (n *Normalizer) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize runs decode, resize and encode. It has no storage side effects.
func (n *Normalizer) Normalize(data []byte) (*Normalized, error) {
	img, format, err := n.Decode(data)
	if err != nil {
		return nil, err
	}
	out, err := n.Encode(n.Resize(img))
	if err != nil {
		return nil, err
	}
	return &Normalized{
		Data:         out,
		Width:        n.opts.Width,
		Height:       n.opts.Height,
		ContentType:  CanonicalContentType,
		SourceFormat: format,
	}, nil
}

// coverRect returns the centered region of src with the target aspect ratio.
func coverRect(src image.Rectangle, width, height int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	// compare sw/sh with width/height without floats
	if sw*height > sh*width {
		cw := (sh*width + height/2) / height
		if cw < 1 {
			cw = 1
		}
		x0 := src.Min.X + (sw-cw)/2
		return image.Rect(x0, src.Min.Y, x0+cw, src.Max.Y)
	}
	ch := (sw*height + width/2) / width
	if ch < 1 {
		ch = 1
	}
	y0 := src.Min.Y + (sh-ch)/2
	return image.Rect(src.Min.X, y0, src.Max.X, y0+ch)
}
