package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"meta-anchor/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDatabase relational implementation shared by MySQL and SQLite
type GormDatabase struct {
	db *gorm.DB
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig SQLite configuration, used for local runs and tests
type SQLiteConfig struct {
	DSN string // file path or "file::memory:?cache=shared"
}

// NewMySQLDatabase create MySQL database instance
func NewMySQLDatabase(config interface{}) (Database, error) {
	cfg, ok := config.(*MySQLConfig)
	if !ok {
		return nil, fmt.Errorf("invalid MySQL config type")
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		return nil, err
	}

	log.Println("MySQL database connected successfully")
	return &GormDatabase{db: db}, nil
}

// NewSQLiteDatabase create SQLite database instance
func NewSQLiteDatabase(config interface{}) (Database, error) {
	cfg, ok := config.(*SQLiteConfig)
	if !ok {
		return nil, fmt.Errorf("invalid SQLite config type")
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}

	log.Printf("SQLite database opened: %s", cfg.DSN)
	return &GormDatabase{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.TokenTransfer{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// User operations

func (g *GormDatabase) CreateUser(user *model.User) error {
	if _, err := g.GetUserByID(user.UserID); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	err := g.db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	return err
}

func (g *GormDatabase) GetUserByID(userID string) (*model.User, error) {
	var user model.User
	err := g.db.Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *GormDatabase) GetUserByIDAndWallet(userID, walletAddress string) (*model.User, error) {
	var user model.User
	err := g.db.Where("user_id = ? AND wallet_address = ?", userID, walletAddress).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *GormDatabase) GetUserByWallet(walletAddress string) (*model.User, error) {
	var user model.User
	err := g.db.Where("wallet_address = ?", walletAddress).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TokenTransfer operations

func (g *GormDatabase) CreateTokenTransfer(transfer *model.TokenTransfer) error {
	return g.db.Create(transfer).Error
}

func (g *GormDatabase) ListTokenTransfersByAddress(address string, limit int) ([]*model.TokenTransfer, error) {
	var transfers []*model.TokenTransfer
	query := g.db.Where("from_address = ? OR to_address = ?", address, address).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// Close closes the connection pool
func (g *GormDatabase) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
