package controllers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/media"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// multipartOverhead leaves room for boundaries and the category field.
const multipartOverhead = 1 << 20

// UploadController accepts admin image uploads and runs them through the media pipeline.
type UploadController struct {
	db      *gorm.DB
	svc     *media.Service
	timeout time.Duration
}

// NewUploadController creates an UploadController. timeout bounds one pipeline run.
func NewUploadController(db *gorm.DB, svc *media.Service, timeout time.Duration) *UploadController {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &UploadController{db: db, svc: svc, timeout: timeout}
}

// Upload handles multipart/form-data with a "file" part and a "type" category field.
func (u *UploadController) Upload(ctx *gin.Context) {
	limits := u.svc.Limits()
	maxBody := limits.MaxBytes + multipartOverhead
	if ctx.Request.ContentLength > maxBody {
		respondMediaError(ctx, &media.ValidationError{Kind: media.TooLarge, Size: ctx.Request.ContentLength, Limit: limits.MaxBytes})
		return
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBody)

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondMediaError(ctx, &media.ValidationError{Kind: media.TooLarge, Size: maxBody, Limit: limits.MaxBytes})
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40031, "file is required")
		return
	}

	declared := declaredType(fh.Header.Get("Content-Type"), fh.Filename)
	if err := media.Validate(fh.Size, declared, limits); err != nil {
		respondMediaError(ctx, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "failed to read upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limits.MaxBytes+1))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "failed to read upload")
		return
	}

	u.process(ctx, media.Request{
		Data:          data,
		DeclaredType:  declared,
		Category:      strings.TrimSpace(ctx.PostForm("type")),
		SuggestedName: fh.Filename,
		Actor:         getUsername(ctx),
	})
}

// UploadOptimized handles a raw body. The category comes from ?type= and the image type
// from X-Upload-Content-Type, falling back to Content-Type when it is not octet-stream.
func (u *UploadController) UploadOptimized(ctx *gin.Context) {
	limits := u.svc.Limits()
	declared := ctx.GetHeader("X-Upload-Content-Type")
	if declared == "" {
		if ct := ctx.ContentType(); ct != "application/octet-stream" {
			declared = ct
		}
	}
	declared = declaredType(declared, ctx.GetHeader("X-Upload-Filename"))

	// Reject on headers alone when possible so an oversized body is never read.
	if err := media.Validate(max(ctx.Request.ContentLength, 0), declared, limits); err != nil {
		respondMediaError(ctx, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limits.MaxBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondMediaError(ctx, &media.ValidationError{Kind: media.TooLarge, Size: limits.MaxBytes + 1, Limit: limits.MaxBytes})
			return
		}
		if ctxErr := ctx.Request.Context().Err(); ctxErr != nil {
			respondMediaError(ctx, ctxErr)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40032, "failed to read upload")
		return
	}

	u.process(ctx, media.Request{
		Data:          data,
		DeclaredType:  declared,
		Category:      strings.TrimSpace(ctx.Query("type")),
		SuggestedName: ctx.GetHeader("X-Upload-Filename"),
		Actor:         getUsername(ctx),
	})
}

func (u *UploadController) process(ctx *gin.Context, req media.Request) {
	runCtx, cancel := context.WithTimeout(ctx.Request.Context(), u.timeout)
	defer cancel()

	res, err := u.svc.Process(runCtx, req)
	if err != nil {
		respondMediaError(ctx, err)
		return
	}

	// The asset row is written strictly after the object is stored and resolved.
	// If it fails the object is an orphan, but the URL handed back is valid.
	asset := models.Asset{
		Key:          res.Object.Key,
		URL:          res.URL,
		Size:         res.Object.Size,
		ContentType:  res.Object.ContentType,
		Category:     req.Category,
		SourceFormat: res.SourceFormat,
		Width:        res.Width,
		Height:       res.Height,
		UploadedBy:   req.Actor,
	}
	if err := u.db.WithContext(ctx.Request.Context()).Create(&asset).Error; err != nil {
		utils.Sugar.Errorw("record asset failed", "key", asset.Key, "error", err)
	}

	ctx.JSON(http.StatusOK, gin.H{"imageUrl": res.URL})
}

// declaredType prefers the client's content type and falls back to the filename extension.
func declaredType(ct, filename string) string {
	ct = strings.TrimSpace(ct)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); byExt != "" {
		return byExt
	}
	return ct
}
