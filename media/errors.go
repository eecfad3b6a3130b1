package media

import (
	"errors"
	"fmt"

	"github.com/cancoktug/ginovainno-replit-sub001/storage"
)

// ValidationKind says why a payload was rejected before decoding.
type ValidationKind string

const (
	TooLarge        ValidationKind = "too_large"
	UnsupportedType ValidationKind = "unsupported_type"
	InvalidCategory ValidationKind = "invalid_category"
)

// ValidationError is a client fault detected without looking at the image data.
type ValidationError struct {
	Kind     ValidationKind
	Size     int64
	Limit    int64
	Type     string
	Category string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case TooLarge:
		return fmt.Sprintf("payload of %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
	case UnsupportedType:
		return fmt.Sprintf("content type %q is not allowed", e.Type)
	case InvalidCategory:
		return fmt.Sprintf("category %q is not allowed", e.Category)
	}
	return "invalid upload"
}

// UserMessage is safe to show to the uploader.
func (e *ValidationError) UserMessage() string {
	switch e.Kind {
	case TooLarge:
		return fmt.Sprintf("File is too large. Maximum size is %s.", humanBytes(e.Limit))
	case UnsupportedType:
		return "Unsupported file type. Please upload a JPEG, PNG, WEBP or GIF image."
	case InvalidCategory:
		return "Unknown upload category."
	}
	return "Invalid upload."
}

// DecodeError means the bytes could not be parsed as a supported image.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode %s image: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) UserMessage() string {
	return "The file could not be read as an image."
}

// ConfigurationError is a startup fault; the process must not serve traffic.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// ErrUnknownFormat is wrapped in a DecodeError when sniffing finds no registered decoder.
var ErrUnknownFormat = errors.New("unrecognized image format")

// IsClientError reports whether err is the uploader's fault.
func IsClientError(err error) bool {
	var ve *ValidationError
	var de *DecodeError
	return errors.As(err, &ve) || errors.As(err, &de)
}

// IsRetryable reports whether resubmitting the same upload may succeed later.
func IsRetryable(err error) bool {
	return errors.Is(err, storage.ErrStorageUnavailable)
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
