package controllers

import (
	"context"
	"net/http"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cancoktug/ginovainno-replit-sub001/storage"
)

func TestMediaServe(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	obj, err := store.Put(context.Background(), jpegFixture(t, 10, 10), storage.PutOptions{Namespace: "team", SuggestedName: "a.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)

	r := gin.New()
	m := NewMediaController(store)
	r.GET("/media/*key", m.Serve)

	w := serve(r, http.MethodGet, "/media/"+obj.Key, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")
	etag := w.Header().Get("ETag")
	assert.Equal(t, `"`+strings.TrimSuffix(path.Base(obj.Key), ".jpg")+`"`, etag)
	assert.EqualValues(t, obj.Size, w.Body.Len())

	assert.Empty(t, w.Header().Get("Content-Disposition"))

	w = serve(r, http.MethodGet, "/media/"+obj.Key, nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Zero(t, w.Body.Len())

	// a matching validator does not vouch for an object that is gone
	require.NoError(t, store.Delete(context.Background(), obj.Key))
	w = serve(r, http.MethodGet, "/media/"+obj.Key, nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(r, http.MethodGet, "/media/elsewhere/x.jpg", nil, map[string]string{"If-None-Match": `"x"`})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/media/uploads/team/2026/01/missing.jpg", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/media/elsewhere/secret.txt", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaServeRecordedTypeAsDownload(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	r := gin.New()
	r.GET("/media/*key", NewMediaController(store).Serve)

	page := []byte("<html><script>alert(document.cookie)</script></html>")
	cases := []struct {
		name        string
		contentType string
		want        string
	}{
		{"declared pdf", "application/pdf", "application/pdf"},
		{"no recorded type", "", "text/html; charset=utf-8"},
		{"declared html", "text/html", "text/html"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := storage.NewKey("uploads", storage.PutOptions{Namespace: "general", SuggestedName: "deck.pdf"}, time.Now())
			require.NoError(t, err)
			_, err = store.PutKey(context.Background(), key, page, tc.contentType)
			require.NoError(t, err)

			w := serve(r, http.MethodGet, "/media/"+key, nil, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, w.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment"))
			assert.Equal(t, "sandbox", w.Header().Get("Content-Security-Policy"))
		})
	}
}
