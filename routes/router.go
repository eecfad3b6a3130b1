package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
	"github.com/cancoktug/ginovainno-replit-sub001/controllers"
	"github.com/cancoktug/ginovainno-replit-sub001/media"
	"github.com/cancoktug/ginovainno-replit-sub001/middleware"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// Deps are the long-lived services the HTTP layer is built from.
type Deps struct {
	DB        *gorm.DB
	Store     storage.Store
	Media     *media.Service
	Issuer    *utils.TokenIssuer
	Blacklist *utils.TokenBlacklist
	Guard     *utils.LoginGuard
	Cache     *utils.Cache
	Mailer    controllers.Notifier
	// Captcha is nil when the login captcha is disabled.
	Captcha *utils.Captcha
}

type contentHandlers interface {
	List(*gin.Context)
	Get(*gin.Context)
	AdminList(*gin.Context)
	AdminGet(*gin.Context)
	Create(*gin.Context)
	Update(*gin.Context)
	Delete(*gin.Context)
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, d Deps) *gin.Engine {
	switch strings.ToLower(cfg.App.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.Log.GinPath, cfg.Log)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Upload-Content-Type", "X-Upload-Filename"},
		ExposeHeaders:    []string{"Content-Length", "ETag"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.PageViewRecorder(d.DB))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	// Objects are served here only when public URLs point back at this server.
	mediaController := controllers.NewMediaController(d.Store)
	if base := d.Media.Resolver().Base(); strings.HasPrefix(base, "/") {
		r.GET(base+"/*key", mediaController.Serve)
		r.HEAD(base+"/*key", mediaController.Serve)
	}

	authController := controllers.NewAuthController(d.DB, d.Issuer, d.Blacklist, d.Guard, d.Captcha)
	uploadController := controllers.NewUploadController(d.DB, d.Media, cfg.Media.UploadTimeout)
	objectController := controllers.NewObjectController(d.Store, d.Media, d.Issuer, cfg.Storage.Prefix, cfg.Media.PresignTTL, cfg.Media.ObjectMaxBytes)
	assetController := controllers.NewAssetController(d.DB, d.Store)
	contactController := controllers.NewContactController(d.DB, d.Mailer)
	statsController := controllers.NewStatsController(d.DB)

	perMinute := cfg.App.RateLimitPerMinute
	requireAdmin := middleware.AuthRequired(d.Issuer, d.Blacklist)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(perMinute))
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", requireAdmin, authController.Logout)
	authGroup.GET("/me", requireAdmin, authController.Me)

	api.POST("/contact", middleware.RateLimit(perMinute), contactController.Submit)
	api.GET("/stats", statsController.GetStats)
	// token-authorized, so no bearer header
	api.PUT(strings.TrimPrefix(controllers.DirectUploadPath, "/api/v1"), objectController.DirectPut)

	admin := api.Group("/admin")
	admin.Use(requireAdmin, middleware.RateLimit(perMinute))
	admin.PUT("/password", authController.ChangePassword)
	admin.POST("/uploads", uploadController.Upload)
	admin.POST("/uploads/optimized", uploadController.UploadOptimized)
	admin.POST("/objects/upload", objectController.Presign)
	admin.GET("/assets", assetController.List)
	admin.DELETE("/assets/:id", assetController.Delete)
	admin.GET("/messages", contactController.List)
	admin.PATCH("/messages/:id/handled", contactController.MarkHandled)
	admin.GET("/stats", statsController.GetAdminStats)

	mountContent(api, admin, "team", controllers.NewContentController[models.TeamMember](d.DB, d.Cache, "team", "sort_order ASC, id ASC"))
	mountContent(api, admin, "mentors", controllers.NewContentController[models.Mentor](d.DB, d.Cache, "mentors", "sort_order ASC, id ASC"))
	mountContent(api, admin, "programs", controllers.NewContentController[models.Program](d.DB, d.Cache, "programs", "start_date DESC, id DESC"))
	mountContent(api, admin, "startups", controllers.NewContentController[models.Startup](d.DB, d.Cache, "startups", "name ASC"))
	mountContent(api, admin, "events", controllers.NewContentController[models.Event](d.DB, d.Cache, "events", "starts_at DESC"))
	mountContent(api, admin, "blog", controllers.NewContentController[models.BlogPost](d.DB, d.Cache, "blog", "published_at DESC, id DESC"))

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})
	return r
}

func mountContent(public, admin *gin.RouterGroup, name string, h contentHandlers) {
	public.GET("/"+name, h.List)
	public.GET("/"+name+"/:id", h.Get)

	g := admin.Group("/" + name)
	g.GET("", h.AdminList)
	g.GET("/:id", h.AdminGet)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
