package controllers

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// inlineTypes may render in the browser. Everything else is served as a download.
var inlineTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// MediaController serves stored objects when the public base URL points back at this server.
type MediaController struct {
	store storage.Store
}

func NewMediaController(store storage.Store) *MediaController {
	return &MediaController{store: store}
}

// Serve streams the object named by the *key path parameter. Objects are immutable, so
// responses are cacheable forever and the ETag is derived from the key.
func (m *MediaController) Serve(ctx *gin.Context) {
	key := strings.TrimPrefix(ctx.Param("key"), "/")
	etag := `"` + strings.TrimSuffix(path.Base(key), path.Ext(key)) + `"`
	if match := ctx.GetHeader("If-None-Match"); match != "" && match == etag {
		ok, err := m.store.Exists(ctx.Request.Context(), key)
		if err != nil || !ok {
			m.fail(ctx, key, err)
			return
		}
		ctx.Status(http.StatusNotModified)
		return
	}

	data, obj, err := m.store.Get(ctx.Request.Context(), key)
	if err != nil {
		m.fail(ctx, key, err)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	if base, _, err := mime.ParseMediaType(contentType); err != nil || !inlineTypes[base] {
		ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
		ctx.Header("Content-Security-Policy", "sandbox")
		if err != nil {
			contentType = "application/octet-stream"
		}
	}

	ctx.Header("Cache-Control", "public, max-age=31536000, immutable")
	ctx.Header("ETag", etag)
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Data(http.StatusOK, contentType, data)
}

// fail answers a lookup that found nothing usable. A nil err means the object is absent.
func (m *MediaController) fail(ctx *gin.Context, key string, err error) {
	if err == nil || errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		utils.Error(ctx, http.StatusNotFound, 40430, "media not found")
		return
	}
	utils.Sugar.Errorw("media read failed", "key", key, "error", err)
	utils.Error(ctx, http.StatusServiceUnavailable, 50302, "media temporarily unavailable")
}
