package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cancoktug/ginovainno-replit-sub001/media"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// DirectUploadPath receives PUTs authorized by a signed upload token.
const DirectUploadPath = "/api/v1/objects/direct"

const defaultObjectType = "application/octet-stream"

// ObjectController hands out direct-upload URLs for arbitrary binary objects.
// Drivers that can presign (S3) get a bucket URL; the rest get a signed URL on this server.
type ObjectController struct {
	store    storage.Store
	svc      *media.Service
	issuer   *utils.TokenIssuer
	prefix   string
	ttl      time.Duration
	maxBytes int64
}

func NewObjectController(store storage.Store, svc *media.Service, issuer *utils.TokenIssuer, prefix string, ttl time.Duration, maxBytes int64) *ObjectController {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ObjectController{store: store, svc: svc, issuer: issuer, prefix: prefix, ttl: ttl, maxBytes: maxBytes}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Type        string `json:"type"`
}

// Presign derives a fresh key and returns {"method":"PUT","url":...} for the client to upload to.
func (o *ObjectController) Presign(ctx *gin.Context) {
	var req presignRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40035, "invalid request payload")
			return
		}
	}
	category := strings.TrimSpace(req.Type)
	if category == "" {
		category = "general"
	}
	if !o.svc.CategoryAllowed(category) {
		respondMediaError(ctx, &media.ValidationError{Kind: media.InvalidCategory, Category: category})
		return
	}
	contentType := defaultObjectType
	if req.ContentType != "" {
		mt, _, err := mime.ParseMediaType(req.ContentType)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40036, "invalid content type")
			return
		}
		contentType = mt
	}

	key, err := storage.NewKey(o.prefix, storage.PutOptions{Namespace: category, SuggestedName: req.Filename}, time.Now())
	if err != nil {
		respondMediaError(ctx, err)
		return
	}

	var (
		uploadURL string
		expiresAt = time.Now().Add(o.ttl)
	)
	if p, ok := o.store.(storage.Presigner); ok {
		uploadURL, err = p.PresignPut(ctx.Request.Context(), key, contentType, o.ttl)
		if err != nil {
			respondMediaError(ctx, err)
			return
		}
	} else {
		var token string
		token, expiresAt, err = o.issuer.GenerateUploadToken(key, contentType, o.maxBytes, o.ttl)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to sign upload")
			return
		}
		uploadURL = DirectUploadPath + "?token=" + url.QueryEscape(token)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"method":     http.MethodPut,
		"url":        uploadURL,
		"key":        key,
		"publicUrl":  o.svc.Resolver().Resolve(key),
		"headers":    gin.H{"Content-Type": contentType},
		"expires_at": expiresAt.UTC(),
	})
}

// DirectPut stores the request body under the key named by a valid upload token.
// A key can be written once. The Exists check spares reading the body of an obvious
// replay; the store's exclusive write settles concurrent ones.
func (o *ObjectController) DirectPut(ctx *gin.Context) {
	claims, err := o.issuer.ParseUploadToken(ctx.Query("token"))
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid or expired upload token")
		return
	}
	ct := ctx.ContentType()
	if ct == "" {
		ct = defaultObjectType
	}
	if !strings.EqualFold(ct, claims.ContentType) {
		utils.Error(ctx, http.StatusBadRequest, 40037, "content type does not match upload grant")
		return
	}
	if ctx.Request.ContentLength > claims.MaxBytes {
		respondMediaError(ctx, &media.ValidationError{Kind: media.TooLarge, Size: ctx.Request.ContentLength, Limit: claims.MaxBytes})
		return
	}

	exists, err := o.store.Exists(ctx.Request.Context(), claims.Key)
	if err != nil {
		respondMediaError(ctx, err)
		return
	}
	if exists {
		utils.Error(ctx, http.StatusConflict, 40910, "object already uploaded")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, claims.MaxBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondMediaError(ctx, &media.ValidationError{Kind: media.TooLarge, Size: claims.MaxBytes + 1, Limit: claims.MaxBytes})
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40032, "failed to read upload")
		return
	}

	obj, err := o.store.PutKey(ctx.Request.Context(), claims.Key, data, claims.ContentType)
	if err != nil {
		if !errors.Is(err, storage.ErrExists) {
			utils.Sugar.Errorw("direct upload failed", "key", claims.Key, "error", err)
		}
		respondMediaError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"key": obj.Key, "url": o.svc.Resolver().Resolve(obj.Key), "size": obj.Size})
}
