package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/media"
	"github.com/cancoktug/ginovainno-replit-sub001/middleware"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// statusClientClosed is what nginx logs for a client that hung up; nobody reads the body.
const statusClientClosed = 499

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func getUsername(ctx *gin.Context) string {
	return ctx.GetString(middleware.ContextUsernameKey)
}

func parseID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// respondMediaError maps pipeline and storage failures to status codes.
// Client faults get the specific reason. Infrastructure faults get a generic retry
// message; the details are in the pipeline log.
func respondMediaError(ctx *gin.Context, err error) {
	var (
		ve *media.ValidationError
		de *media.DecodeError
	)
	switch {
	case errors.As(err, &ve):
		if ve.Kind == media.TooLarge {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, ve.UserMessage())
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40030, ve.UserMessage())
	case errors.As(err, &de):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42201, de.UserMessage())
	case errors.Is(err, storage.ErrInvalidKey):
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid object key")
	case errors.Is(err, storage.ErrExists):
		utils.Error(ctx, http.StatusConflict, 40910, "object already uploaded")
	case errors.Is(err, storage.ErrQuotaExceeded):
		utils.Error(ctx, http.StatusInsufficientStorage, 50701, "Storage is full. Please contact an administrator.")
	case errors.Is(err, storage.ErrStorageUnavailable), errors.Is(err, context.DeadlineExceeded):
		ctx.Header("Retry-After", "5")
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "Upload failed, please try again.")
	case errors.Is(err, context.Canceled):
		ctx.AbortWithStatus(statusClientClosed)
	default:
		utils.Sugar.Errorw("unclassified upload failure", "path", ctx.Request.URL.Path, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "upload failed")
	}
}
