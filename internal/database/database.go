package database

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/freshcorner/internal/models"
)

// Connect opens the Postgres connection, prepares extensions and runs migrations.
func Connect(dsn string, level logger.LogLevel, log *zap.Logger) (*gorm.DB, error) {
	if err := ensureDatabase(dsn); err != nil {
		return nil, errors.Wrap(err, "ensure database")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}

	for _, ext := range []string{"uuid-ossp", "pg_trgm"} {
		if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "` + ext + `"`).Error; err != nil {
			log.Warn("failed to ensure extension", zap.String("extension", ext), zap.Error(err))
		}
	}

	if err := Migrate(conn); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	if err := createSearchIndexes(conn); err != nil {
		log.Warn("trigram indexes not created", zap.Error(err))
	}

	return conn, nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Models returns every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.OtpVerification{},
		&models.UserAddress{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Warehouse{},
		&models.WarehouseInventory{},
		&models.StockMovement{},
		&models.ExpiryAlert{},
	}
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	for _, model := range Models() {
		if err := conn.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func createSearchIndexes(conn *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_products_name_en_trgm ON products USING gin (name_en gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_products_name_bn_trgm ON products USING gin (name_bn gin_trgm_ops)`,
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"

	sqlDB, err := sql.Open("postgres", parsed.String())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
