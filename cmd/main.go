package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kyz7/blogaccount/internal/auth"
	"github.com/Kyz7/blogaccount/internal/cache"
	"github.com/Kyz7/blogaccount/internal/config"
	"github.com/Kyz7/blogaccount/internal/database"
	"github.com/Kyz7/blogaccount/internal/logger"
	"github.com/Kyz7/blogaccount/internal/media"
	"github.com/Kyz7/blogaccount/internal/notify"
	"github.com/Kyz7/blogaccount/internal/server"
	"github.com/Kyz7/blogaccount/internal/session"
	"github.com/Kyz7/blogaccount/internal/user"
)

const deliveredEmailRetention = 7 * 24 * time.Hour

func main() {
	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalw("invalid configuration", "err", err)
	}

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatalw("database connection failed", "err", err)
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatalw("migration failed", "err", err)
	}
	if err := database.RunMigrations(db, "./migrations"); err != nil {
		logger.Log.Warnw("SQL migrations failed, lookups may be slower", "err", err)
	}

	// ========== COLLABORATORS ==========
	var images media.ImageStore
	uploadDir := ""
	if cfg.UseS3 {
		s3Store, err := media.NewS3Store(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
		if err != nil {
			logger.Log.Fatalw("S3 initialization failed", "err", err)
		}
		images = s3Store
		logger.Log.Infow("using S3 image storage", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
	} else {
		if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
			logger.Log.Fatalw("failed to initialize local storage", "dir", cfg.UploadDir, "err", err)
		}
		images = media.NewLocalStore(cfg.UploadDir, "/uploads")
		uploadDir = cfg.UploadDir
		logger.Log.Infow("using local image storage", "dir", cfg.UploadDir)
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		logger.Log.Warnw("SMTP_HOST not set, emails will only be logged")
	}

	var states auth.StateStore = auth.NewMemoryStateStore()
	if cfg.RedisAddr != "" {
		client := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(pingCtx); err != nil {
			logger.Log.Warnw("redis unreachable, keeping OAuth state in memory", "addr", cfg.RedisAddr, "err", err)
		} else {
			states = auth.NewRedisStateStore(client)
		}
		cancel()
	}

	sessions := session.NewManager(db, cfg.JWTSecret)
	dispatcher := notify.NewDispatcher(db, nil)
	authSvc := auth.NewService(db)
	reset := auth.NewResetManager(db, dispatcher, cfg.AppBaseURL)
	google := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	avatars := media.NewAvatarManager(db, images, cfg.AvatarFolder)

	// ========== BACKGROUND JOBS ==========
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := notify.NewWorker(db, mailer, notify.WithMaxAttempts(cfg.MailMaxAttempts))
	go worker.Run(ctx, cfg.MailPollInterval)
	go purge(ctx, sessions, worker)

	// ========== START SERVER ==========
	app := server.New(server.Deps{
		Auth:          auth.NewHandler(authSvc, reset, sessions, google, states),
		Profile:       user.NewHandler(user.NewService(db, avatars), authSvc),
		Sessions:      sessions,
		UploadDir:     uploadDir,
		AuthRateLimit: cfg.AuthRateLimit,
		AccessLog:     true,
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Errorw("server shutdown failed", "err", err)
		}
	}()

	logger.Log.Infow("account server starting", "addr", cfg.ServerAddr, "base_url", cfg.AppBaseURL)
	if err := app.Listen(cfg.ServerAddr); err != nil {
		logger.Log.Fatalw("failed to start server", "err", err)
	}
}

// purge drops spent refresh tokens and old delivered emails every hour.
// Reset tokens are kept.
func purge(ctx context.Context, sessions *session.Manager, worker *notify.Worker) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := sessions.PurgeExpired(ctx); err != nil {
			logger.Log.Warnw("refresh token cleanup failed", "err", err)
		} else if n > 0 {
			logger.Log.Infow("cleaned up refresh tokens", "count", n)
		}

		if n, err := worker.PurgeDelivered(ctx, deliveredEmailRetention); err != nil {
			logger.Log.Warnw("outbox cleanup failed", "err", err)
		} else if n > 0 {
			logger.Log.Infow("cleaned up delivered emails", "count", n)
		}
	}
}
