package models

import (
	"strings"
	"time"
	"unicode"
)

// Base carries the columns shared by every content table.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) GetID() uint { return b.ID }

func (b *Base) SetID(id uint) { b.ID = id }

// Content is implemented by every resource exposed through the public API.
type Content interface {
	GetID() uint
	SetID(id uint)
	// Normalize trims input and fills derived fields before a write.
	Normalize()
}

// HTMLContent exposes rich-text fields that must be sanitized before storage.
type HTMLContent interface {
	HTMLFields() []*string
}

// Sluggable resources can be fetched by slug as well as by id.
type Sluggable interface {
	SlugValue() string
}

// Slugify lowercases s and joins runs of letters and digits with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(foldTurkish.Replace(strings.TrimSpace(s))) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 120 {
		out = strings.TrimRight(out[:120], "-")
	}
	return out
}

var foldTurkish = strings.NewReplacer(
	"İ", "i", "I", "i", "ı", "i",
	"Ç", "c", "ç", "c",
	"Ğ", "g", "ğ", "g",
	"Ö", "o", "ö", "o",
	"Ş", "s", "ş", "s",
	"Ü", "u", "ü", "u",
)

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
