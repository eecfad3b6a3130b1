package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

type contentPtr[T any] interface {
	*T
	models.Content
}

// ContentController serves one CMS resource: cached public reads of published rows
// and admin CRUD including drafts.
type ContentController[T any, PT contentPtr[T]] struct {
	db       *gorm.DB
	cache    *utils.Cache
	resource string
	order    string
}

// NewContentController creates a controller for resource, listing rows in the given SQL order.
func NewContentController[T any, PT contentPtr[T]](db *gorm.DB, cache *utils.Cache, resource, order string) *ContentController[T, PT] {
	return &ContentController[T, PT]{db: db, cache: cache, resource: resource, order: order}
}

func (c *ContentController[T, PT]) cachePrefix() string {
	return "cache:" + c.resource + ":"
}

func (c *ContentController[T, PT]) sluggable() bool {
	_, ok := any(PT(new(T))).(models.Sluggable)
	return ok
}

// List returns published rows, paginated.
func (c *ContentController[T, PT]) List(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	cacheKey := fmt.Sprintf("%slist:page=%d:size=%d", c.cachePrefix(), page, pageSize)
	if b, ok := c.cache.GetBytes(rctx, cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	items, total, err := c.page(rctx, c.db.Where("published = ?", true), page, pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list "+c.resource)
		return
	}
	payload := gin.H{"items": items, "pagination": utils.NewPagination(page, pageSize, total)}
	c.cache.SetJSON(rctx, cacheKey, utils.Envelope(payload))
	utils.Success(ctx, payload)
}

// Get returns one published row by numeric id or, for resources with slugs, by slug.
func (c *ContentController[T, PT]) Get(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	ident := ctx.Param("id")
	cacheKey := c.cachePrefix() + "item:" + ident
	if b, ok := c.cache.GetBytes(rctx, cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	query := c.db.WithContext(rctx).Where("published = ?", true)
	if id, err := strconv.ParseUint(ident, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else if c.sluggable() {
		query = query.Where("slug = ?", ident)
	} else {
		utils.Error(ctx, http.StatusNotFound, 40450, c.resource+" not found")
		return
	}

	item := PT(new(T))
	if err := query.First(item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, c.resource+" not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load "+c.resource)
		return
	}
	c.cache.SetJSON(rctx, cacheKey, utils.Envelope(item))
	utils.Success(ctx, item)
}

// AdminList returns every row including drafts; ?published=true|false filters.
func (c *ContentController[T, PT]) AdminList(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := c.db
	if v := ctx.Query("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40050, "invalid published filter")
			return
		}
		query = query.Where("published = ?", published)
	}
	items, total, err := c.page(ctx.Request.Context(), query, page, pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list "+c.resource)
		return
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": utils.NewPagination(page, pageSize, total)})
}

// AdminGet returns a row by id whether or not it is published.
func (c *ContentController[T, PT]) AdminGet(ctx *gin.Context) {
	item, ok := c.load(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, item)
}

// Create inserts a row. Rich-text fields are sanitized and slugs derived before the write.
func (c *ContentController[T, PT]) Create(ctx *gin.Context) {
	item := PT(new(T))
	if err := ctx.ShouldBindJSON(item); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}
	item.SetID(0)
	if !c.prepare(ctx, item) {
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Create(item).Error; err != nil {
		c.writeError(ctx, err, "create")
		return
	}
	c.invalidate(ctx.Request.Context())
	ctx.JSON(http.StatusCreated, utils.Envelope(item))
}

// Update overlays the JSON body on the stored row.
func (c *ContentController[T, PT]) Update(ctx *gin.Context) {
	item, ok := c.load(ctx)
	if !ok {
		return
	}
	id := item.GetID()
	if err := ctx.ShouldBindJSON(item); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}
	item.SetID(id)
	if !c.prepare(ctx, item) {
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Save(item).Error; err != nil {
		c.writeError(ctx, err, "update")
		return
	}
	c.invalidate(ctx.Request.Context())
	utils.Success(ctx, item)
}

// Delete removes a row. Images it referenced stay in the asset registry.
func (c *ContentController[T, PT]) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid id")
		return
	}
	res := c.db.WithContext(ctx.Request.Context()).Delete(PT(new(T)), id)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to delete "+c.resource)
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40450, c.resource+" not found")
		return
	}
	c.invalidate(ctx.Request.Context())
	utils.Success(ctx, gin.H{"message": c.resource + " deleted"})
}

func (c *ContentController[T, PT]) page(ctx context.Context, query *gorm.DB, page, pageSize int) ([]T, int64, error) {
	query = query.WithContext(ctx).Model(PT(new(T))).Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, pageSize)
	err := query.Order(c.order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error
	return items, total, err
}

func (c *ContentController[T, PT]) load(ctx *gin.Context) (PT, bool) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid id")
		return nil, false
	}
	item := PT(new(T))
	if err := c.db.WithContext(ctx.Request.Context()).First(item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, c.resource+" not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load "+c.resource)
		return nil, false
	}
	return item, true
}

func (c *ContentController[T, PT]) prepare(ctx *gin.Context, item PT) bool {
	item.Normalize()
	if h, ok := any(item).(models.HTMLContent); ok {
		for _, f := range h.HTMLFields() {
			*f = utils.Sanitize(*f)
		}
	}
	if s, ok := any(item).(models.Sluggable); ok && s.SlugValue() == "" {
		utils.Error(ctx, http.StatusBadRequest, 40053, "slug is required")
		return false
	}
	return true
}

func (c *ContentController[T, PT]) writeError(ctx *gin.Context, err error, op string) {
	if isDuplicate(err) {
		utils.Error(ctx, http.StatusConflict, 40950, "slug already in use")
		return
	}
	utils.Sugar.Errorw(op+" content failed", "resource", c.resource, "error", err)
	utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to "+op+" "+c.resource)
}

func (c *ContentController[T, PT]) invalidate(ctx context.Context) {
	c.cache.InvalidatePrefix(ctx, c.cachePrefix())
}
