package server

import (
	"time"

	"github.com/Kyz7/blogaccount/internal/auth"
	"github.com/Kyz7/blogaccount/internal/session"
	"github.com/Kyz7/blogaccount/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Deps struct {
	Auth     *auth.Handler
	Profile  *user.Handler
	Sessions *session.Manager

	// UploadDir is served under /uploads when avatars are kept on local disk.
	UploadDir string
	// AuthRateLimit caps /auth requests per client IP per minute. 0 disables it.
	AuthRateLimit int
	// AccessLog enables the fiber request logger.
	AccessLog bool
}

func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		// Base64 avatars travel in JSON bodies.
		BodyLimit: 8 * 1024 * 1024,
	})

	if deps.UploadDir != "" {
		app.Static("/uploads", deps.UploadDir, fiber.Static{
			Compress:  true,
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Deps) {
	// Middleware
	app.Use(recover.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, OPTIONS",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Account API is running",
		})
	})

	protected := auth.JWTProtected(deps.Sessions)

	// ==========================================
	// AUTH ROUTES (No authentication required)
	// ==========================================
	authGroup := app.Group("/auth")
	if deps.AuthRateLimit > 0 {
		authGroup.Use(limiter.New(limiter.Config{
			Max:        deps.AuthRateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
		}))
	}
	authGroup.Post("/signup", deps.Auth.Signup)
	authGroup.Post("/login", deps.Auth.Login)
	authGroup.Post("/refresh", deps.Auth.Refresh)
	authGroup.Post("/logout", protected, deps.Auth.Logout)
	authGroup.Get("/google/login", deps.Auth.GoogleLogin)
	authGroup.Get("/google/callback", deps.Auth.GoogleCallback)
	authGroup.Post("/forgot-password", deps.Auth.ForgotPassword)
	authGroup.Get("/reset-password/:token", deps.Auth.CheckResetToken)
	authGroup.Post("/reset-password", deps.Auth.ResetPassword)

	// ==========================================
	// ACCOUNT SETTINGS (Authenticated)
	// ==========================================
	settings := app.Group("/settings", protected)
	settings.Get("/profile", deps.Profile.GetProfile)
	settings.Put("/profile", deps.Profile.UpdateProfile)
	settings.Put("/password", deps.Profile.ChangePassword)
}
