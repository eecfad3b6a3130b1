package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// AssetController lists and removes uploaded media.
type AssetController struct {
	db    *gorm.DB
	store storage.Store
}

func NewAssetController(db *gorm.DB, store storage.Store) *AssetController {
	return &AssetController{db: db, store: store}
}

// List returns assets newest first, optionally filtered by ?category=.
func (a *AssetController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := a.db.WithContext(ctx.Request.Context()).Model(&models.Asset{})
	if category := strings.TrimSpace(ctx.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count assets")
		return
	}
	var items []models.Asset
	if err := query.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list assets")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": utils.NewPagination(page, pageSize, total)})
}

// Delete removes the stored object first, then the row. A missing object is not an error.
func (a *AssetController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid asset id")
		return
	}
	var asset models.Asset
	if err := a.db.WithContext(ctx.Request.Context()).First(&asset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "asset not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load asset")
		return
	}

	if err := a.store.Delete(ctx.Request.Context(), asset.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		utils.Sugar.Errorw("delete object failed", "key", asset.Key, "error", err)
		respondMediaError(ctx, err)
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Delete(&asset).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to delete asset")
		return
	}
	utils.Success(ctx, gin.H{"message": "asset deleted"})
}
