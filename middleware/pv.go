package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// pvSkip lists API prefixes that are not visitor-facing content.
var pvSkip = []string{"/api/v1/admin", "/api/v1/auth", "/api/v1/stats", "/api/v1/objects"}

// PageViewRecorder counts successful public content reads per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		path := c.Request.URL.Path
		if !countable(path) {
			return
		}
		if len(path) > 255 {
			path = path[:255]
		}

		now := time.Now().UTC()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("page_views.count + ?", 1),
				"updated_at": now,
			}),
		}).Create(&models.PageView{Date: day, Path: path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Debugf("page view upsert failed path=%s err=%v", path, err)
		}
	}
}

func countable(path string) bool {
	if !strings.HasPrefix(path, "/api/v1/") {
		return false
	}
	for _, p := range pvSkip {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}
