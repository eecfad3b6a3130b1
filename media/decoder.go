package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/webp"
)

// Decoder turns bytes of one image format into pixels.
type Decoder interface {
	Format() string
	DecodeConfig(r io.Reader) (image.Config, error)
	Decode(r io.Reader) (image.Image, error)
}

type formatDecoder struct {
	format string
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

func (d formatDecoder) Format() string { return d.format }

func (d formatDecoder) DecodeConfig(r io.Reader) (image.Config, error) { return d.config(r) }

func (d formatDecoder) Decode(r io.Reader) (image.Image, error) { return d.decode(r) }

// NewDecoder adapts a pair of decode functions into a Decoder.
func NewDecoder(format string, config func(io.Reader) (image.Config, error), decode func(io.Reader) (image.Image, error)) Decoder {
	return formatDecoder{format: format, config: config, decode: decode}
}

var (
	JPEGDecoder = NewDecoder("jpeg", jpeg.DecodeConfig, jpeg.Decode)
	PNGDecoder  = NewDecoder("png", png.DecodeConfig, png.Decode)
	GIFDecoder  = NewDecoder("gif", gif.DecodeConfig, gif.Decode)
	WEBPDecoder = NewDecoder("webp", webp.DecodeConfig, webp.Decode)
)

type registryEntry struct {
	mime    string
	decoder Decoder
}

// Registry picks a Decoder by sniffing magic bytes. The declared content type
// is never consulted here.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry knows JPEG, PNG, GIF and WEBP. Animated GIFs keep only the first frame.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("image/jpeg", JPEGDecoder)
	r.Register("image/png", PNGDecoder)
	r.Register("image/gif", GIFDecoder)
	r.Register("image/webp", WEBPDecoder)
	return r
}

// Register adds or replaces the decoder for a sniffed MIME type.
func (r *Registry) Register(mimeType string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.mime == mimeType {
			r.entries[i].decoder = d
			return
		}
	}
	r.entries = append(r.entries, registryEntry{mime: mimeType, decoder: d})
}

// Sniff returns the decoder matching the payload's magic bytes.
func (r *Registry) Sniff(data []byte) (Decoder, string, error) {
	detected := mimetype.Detect(data)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if detected.Is(e.mime) {
			return e.decoder, e.mime, nil
		}
	}
	return nil, detected.String(), &DecodeError{Err: fmt.Errorf("%w: detected %s", ErrUnknownFormat, detected.String())}
}

// Types lists the registered MIME types in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.mime)
	}
	return out
}

// safeDecode converts decoder panics on hostile input into DecodeErrors.
func safeDecode(d Decoder, data []byte) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img = nil
			err = &DecodeError{Format: d.Format(), Err: fmt.Errorf("decoder panic: %v", p)}
		}
	}()
	img, err = d.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: d.Format(), Err: err}
	}
	return img, nil
}

func safeDecodeConfig(d Decoder, data []byte) (cfg image.Config, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &DecodeError{Format: d.Format(), Err: fmt.Errorf("decoder panic: %v", p)}
		}
	}()
	cfg, err = d.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return cfg, &DecodeError{Format: d.Format(), Err: err}
	}
	return cfg, nil
}
