package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	limits := Limits{MaxBytes: 10 << 20, AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"}}

	tests := []struct {
		name     string
		size     int64
		declared string
		kind     ValidationKind
	}{
		{name: "accepted", size: 1024, declared: "image/jpeg"},
		{name: "exactly at limit", size: 10 << 20, declared: "image/png"},
		{name: "params and case ignored", size: 10, declared: "Image/PNG; charset=binary"},
		{name: "jpg alias", size: 10, declared: "image/jpg"},
		{name: "15MB against 10MB", size: 15 << 20, declared: "image/jpeg", kind: TooLarge},
		{name: "svg", size: 10, declared: "image/svg+xml", kind: UnsupportedType},
		{name: "gif not configured", size: 10, declared: "image/gif", kind: UnsupportedType},
		{name: "empty type", size: 10, declared: "", kind: UnsupportedType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.size, tc.declared, limits)
			if tc.kind == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.kind, ve.Kind)
			assert.NotEmpty(t, ve.UserMessage())
		})
	}
}

func TestValidateSizeCheckedFirst(t *testing.T) {
	err := Validate(20<<20, "application/zip", Limits{MaxBytes: 10 << 20})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, TooLarge, ve.Kind)
	assert.Contains(t, ve.UserMessage(), "10MB")
}

func TestLimitsDefaultTypes(t *testing.T) {
	var l Limits
	for _, ct := range DefaultAllowedTypes {
		assert.True(t, l.Allows(ct), ct)
	}
	assert.False(t, l.Allows("text/html"))
	// no size limit configured
	assert.NoError(t, Validate(1<<40, "image/webp", l))
}
