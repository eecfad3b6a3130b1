package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// StatsController reports content counts and page views.
type StatsController struct {
	db *gorm.DB
}

func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns published counts per resource plus today's and all-time views.
// A failing count is reported as zero rather than failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	published := func(model interface{}) int64 {
		var n int64
		if err := db.Model(model).Where("published = ?", true).Count(&n).Error; err != nil {
			return 0
		}
		return n
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var todayViews, totalViews int64
	if err := db.Model(&models.PageView{}).Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").Scan(&todayViews).Error; err != nil {
		todayViews = 0
	}
	if err := db.Model(&models.PageView{}).Select("COALESCE(SUM(count),0)").Scan(&totalViews).Error; err != nil {
		totalViews = 0
	}

	utils.Success(ctx, gin.H{
		"team_count":    published(&models.TeamMember{}),
		"mentor_count":  published(&models.Mentor{}),
		"program_count": published(&models.Program{}),
		"startup_count": published(&models.Startup{}),
		"event_count":   published(&models.Event{}),
		"post_count":    published(&models.BlogPost{}),
		"today_views":   todayViews,
		"total_views":   totalViews,
	})
}

// GetAdminStats adds figures only staff should see.
func (s *StatsController) GetAdminStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var assets, assetBytes, unhandled int64
	_ = db.Model(&models.Asset{}).Count(&assets).Error
	_ = db.Model(&models.Asset{}).Select("COALESCE(SUM(size),0)").Scan(&assetBytes).Error
	_ = db.Model(&models.ContactMessage{}).Where("handled = ?", false).Count(&unhandled).Error

	type pathViews struct {
		Path  string `json:"path"`
		Views int64  `json:"views"`
	}
	var top []pathViews
	_ = db.Model(&models.PageView{}).Select("path, SUM(count) AS views").
		Group("path").Order("views DESC").Limit(10).Scan(&top).Error

	utils.Success(ctx, gin.H{
		"asset_count":        assets,
		"asset_bytes":        assetBytes,
		"unhandled_messages": unhandled,
		"top_paths":          top,
	})
}
