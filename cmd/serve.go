package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
	"github.com/cancoktug/ginovainno-replit-sub001/media"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/routes"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server with graceful shutdown.

SIGINT and SIGTERM drain in-flight requests; SIGUSR2 starts a new process on the
same listener before the old one exits.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate tables at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := utils.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := config.Migrate(db, models.All()...); err != nil {
			closeDB(db)
			return err
		}
	}

	// Redis is optional; without it every consumer falls back to in-process state.
	rc, err := utils.NewRedis(ctx, cfg.Redis)
	if err != nil {
		utils.Sugar.Warnw("redis unavailable, using in-memory fallbacks", "error", err)
		rc = nil
	}

	deps, err := buildDeps(ctx, cfg, db, rc)
	if err != nil {
		closeDB(db)
		return err
	}
	r := routes.SetupRouter(cfg, deps)

	srv := utils.NewServer(":"+cfg.App.Port, r, cfg.App.ShutdownTimeout)
	srv.OnShutdown(func(context.Context) {
		closeDB(db)
		if rc != nil {
			_ = rc.Close()
		}
	})

	utils.Sugar.Infow("starting server", "port", cfg.App.Port, "storage", cfg.Storage.Driver, "database", cfg.Database.Driver)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Errorw("server stopped with error", "error", err)
		return err
	}
	utils.Sugar.Info("server stopped")
	return nil
}

// buildDeps assembles the services shared by every request handler.
func buildDeps(ctx context.Context, cfg config.AppConfig, db *gorm.DB, rc *redis.Client) (routes.Deps, error) {
	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return routes.Deps{}, err
	}
	resolver, err := media.NewResolver(cfg.Media.PublicBaseURL)
	if err != nil {
		return routes.Deps{}, err
	}
	normalizer := media.NewNormalizer(media.DefaultRegistry(), media.NormalizeOptions{
		Width:     cfg.Media.Width,
		Height:    cfg.Media.Height,
		Quality:   cfg.Media.Quality,
		MaxPixels: cfg.Media.MaxPixels,
	})
	svc, err := media.NewService(store, normalizer, resolver, media.ServiceOptions{
		Limits:     media.Limits{MaxBytes: cfg.Media.MaxBytes, AllowedTypes: cfg.Media.AllowedTypes},
		Categories: cfg.Media.Categories,
		Workers:    cfg.Media.Workers,
	}, media.WithLogger(utils.Logger))
	if err != nil {
		return routes.Deps{}, err
	}

	deps := routes.Deps{
		DB:        db,
		Store:     store,
		Media:     svc,
		Issuer:    utils.NewTokenIssuer(cfg.JWT),
		Blacklist: utils.NewTokenBlacklist(rc),
		Guard:     utils.NewLoginGuard(rc),
		Cache:     utils.NewCache(rc, cfg.App.ContentCacheTTL),
		Mailer:    utils.NewMailer(cfg.SMTP),
	}
	if cfg.Captcha.Enabled {
		deps.Captcha = utils.NewCaptcha(rc)
	}
	return deps, nil
}

func newStore(ctx context.Context, cfg config.StorageSection) (storage.Store, error) {
	switch cfg.Driver {
	case "local":
		return storage.NewLocalStore(cfg.LocalRoot, cfg.Prefix)
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.Prefix,
			EndpointURL:  cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	case "memory":
		utils.Sugar.Warn("memory storage driver selected, uploads are lost on restart")
		return storage.NewMemoryStore(cfg.Prefix), nil
	default:
		return nil, &media.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unsupported driver %q", cfg.Driver)}
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
