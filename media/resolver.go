package media

import (
	"net/url"
	"strings"
)

// Resolver maps storage keys to public URLs. It performs no I/O.
type Resolver struct {
	base string
}

// NewResolver accepts an absolute http(s) URL such as https://cdn.example.com/media
// or an absolute path such as /media.
func NewResolver(base string) (*Resolver, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, &ConfigurationError{Field: "media.public_base_url", Reason: "must not be empty"}
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, &ConfigurationError{Field: "media.public_base_url", Reason: err.Error()}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, &ConfigurationError{Field: "media.public_base_url", Reason: "must not carry a query or fragment"}
	}
	switch {
	case u.Scheme == "" && u.Host == "":
		if !strings.HasPrefix(u.Path, "/") {
			return nil, &ConfigurationError{Field: "media.public_base_url", Reason: "relative base must start with /"}
		}
	case u.Scheme == "http" || u.Scheme == "https":
		if u.Host == "" {
			return nil, &ConfigurationError{Field: "media.public_base_url", Reason: "missing host"}
		}
	default:
		return nil, &ConfigurationError{Field: "media.public_base_url", Reason: "scheme must be http or https"}
	}
	return &Resolver{base: strings.TrimRight(base, "/")}, nil
}

// Base returns the configured base without a trailing slash.
func (r *Resolver) Base() string { return r.base }

// Resolve is deterministic: the same key always yields the same URL.
func (r *Resolver) Resolve(key string) string {
	segs := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return r.base + "/" + strings.Join(segs, "/")
}

// KeyFromURL reverses Resolve for URLs under this base.
func (r *Resolver) KeyFromURL(raw string) (string, bool) {
	prefix := r.base + "/"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(raw, prefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
