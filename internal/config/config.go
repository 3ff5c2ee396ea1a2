package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TestJWTSecret is only accepted outside production.
const TestJWTSecret = "test_secret_key_minimum_32_characters_long_for_testing_only"

type Config struct {
	ServerAddr string
	AppBaseURL string
	LogLevel   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	MailMaxAttempts  int
	MailPollInterval time.Duration

	UseS3         bool
	S3Bucket      string
	S3Region      string
	CloudFrontURL string
	UploadDir     string
	AvatarFolder  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AuthRateLimit is the number of /auth requests per client per minute. 0 disables it.
	AuthRateLimit int
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "blog"),

		JWTSecret: getEnv("JWT_SECRET", TestJWTSecret),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("SMTP_FROM", "no-reply@localhost"),

		MailMaxAttempts:  getEnvInt("MAIL_MAX_ATTEMPTS", 5),
		MailPollInterval: getEnvDuration("MAIL_POLL_INTERVAL", 5*time.Second),

		UseS3:         getEnvBool("USE_S3", false),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", ""),
		CloudFrontURL: strings.TrimRight(getEnv("CLOUDFRONT_URL", ""), "/"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		AvatarFolder:  getEnv("AVATAR_FOLDER", "avatars"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthRateLimit: getEnvInt("AUTH_RATE_LIMIT", 10),
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long (current: %d)", len(c.JWTSecret))
	}
	if c.JWTSecret == TestJWTSecret {
		return fmt.Errorf("cannot use default test secret in production")
	}

	required := map[string]string{
		"DB_HOST":     c.DBHost,
		"DB_NAME":     c.DBName,
		"DB_USER":     c.DBUser,
		"DB_PASSWORD": c.DBPassword,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("required environment variable %s is not set", key)
		}
	}

	if c.MailPollInterval <= 0 {
		return fmt.Errorf("MAIL_POLL_INTERVAL must be positive (current: %s)", c.MailPollInterval)
	}
	if c.MailMaxAttempts < 1 {
		return fmt.Errorf("MAIL_MAX_ATTEMPTS must be at least 1 (current: %d)", c.MailMaxAttempts)
	}

	if c.UseS3 && (c.S3Bucket == "" || c.S3Region == "") {
		return fmt.Errorf("USE_S3=true requires S3_BUCKET and S3_REGION")
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
