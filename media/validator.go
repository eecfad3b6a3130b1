package media

import (
	"mime"
	"strings"
)

// Limits bounds what the pipeline accepts. It is read once at startup.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultAllowedTypes are the declared types accepted when none are configured.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Allows reports whether the declared content type is on the allow list.
// Parameters such as charset are ignored and matching is case-insensitive.
func (l Limits) Allows(declared string) bool {
	ct := normalizeType(declared)
	if ct == "" {
		return false
	}
	allowed := l.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	for _, a := range allowed {
		if normalizeType(a) == ct {
			return true
		}
	}
	return false
}

// Validate is the cheap rejection path. It never touches the payload bytes.
func Validate(size int64, declaredType string, limits Limits) error {
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return &ValidationError{Kind: TooLarge, Size: size, Limit: limits.MaxBytes, Type: declaredType}
	}
	if !limits.Allows(declaredType) {
		return &ValidationError{Kind: UnsupportedType, Size: size, Limit: limits.MaxBytes, Type: declaredType}
	}
	return nil
}

func normalizeType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	ct = strings.ToLower(ct)
	if ct == "image/jpg" || ct == "image/pjpeg" {
		ct = "image/jpeg"
	}
	return ct
}
