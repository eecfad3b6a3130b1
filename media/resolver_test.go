package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolverRejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "   ", "media", "ftp://cdn.example.com", "https://", "https://cdn.example.com/m?x=1", "://bad"} {
		_, err := NewResolver(base)
		var ce *ConfigurationError
		assert.True(t, errors.As(err, &ce), "base %q: %v", base, err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"https://cdn.example.com", "uploads/team/2024/05/a.jpg", "https://cdn.example.com/uploads/team/2024/05/a.jpg"},
		{"https://cdn.example.com/media/", "uploads/blog/x.jpg", "https://cdn.example.com/media/uploads/blog/x.jpg"},
		{"/media", "uploads/events/2024/01/b.jpg", "/media/uploads/events/2024/01/b.jpg"},
		{"/media", "uploads/odd name.jpg", "/media/uploads/odd%20name.jpg"},
	}
	for _, tc := range tests {
		r, err := NewResolver(tc.base)
		require.NoError(t, err)
		first := r.Resolve(tc.key)
		assert.Equal(t, tc.want, first)
		assert.Equal(t, first, r.Resolve(tc.key))

		key, ok := r.KeyFromURL(first)
		assert.True(t, ok)
		assert.Equal(t, tc.key, key)
	}
}

func TestKeyFromURLForeign(t *testing.T) {
	r, err := NewResolver("https://cdn.example.com/media")
	require.NoError(t, err)
	_, ok := r.KeyFromURL("https://elsewhere.example.com/media/uploads/a.jpg")
	assert.False(t, ok)
	_, ok = r.KeyFromURL("https://cdn.example.com/media/")
	assert.False(t, ok)
}
