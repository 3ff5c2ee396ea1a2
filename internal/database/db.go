package database

import (
	"fmt"

	"github.com/Kyz7/blogaccount/internal/config"
	"github.com/Kyz7/blogaccount/internal/logger"
	"github.com/Kyz7/blogaccount/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// Models lists every table owned by the service, in creation order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.PasswordResetToken{},
		&models.RefreshToken{},
		&models.OutboundEmail{},
	}
}

// emailLowerIndex makes emails unique regardless of case. Struct tags cannot
// express an index on an expression.
const emailLowerIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(emailLowerIndex).Error; err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	logger.Log.Infow("database schema migrated")
	return nil
}
