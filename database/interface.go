package database

import (
	"meta-anchor/model"
)

// Database interface for different database implementations
type Database interface {
	// User operations
	CreateUser(user *model.User) error
	GetUserByID(userID string) (*model.User, error)
	GetUserByIDAndWallet(userID, walletAddress string) (*model.User, error)
	GetUserByWallet(walletAddress string) (*model.User, error)

	// TokenTransfer operations
	CreateTokenTransfer(transfer *model.TokenTransfer) error
	ListTokenTransfersByAddress(address string, limit int) ([]*model.TokenTransfer, error)

	// General operations
	Close() error
}

// DBType database type
type DBType string

const (
	DBTypeMySQL  DBType = "mysql"
	DBTypeSQLite DBType = "sqlite"
	DBTypePebble DBType = "pebble"
)

// NewDatabase create database with specified type
func NewDatabase(dbType DBType, config interface{}) (Database, error) {
	switch dbType {
	case DBTypeMySQL:
		return NewMySQLDatabase(config)
	case DBTypeSQLite:
		return NewSQLiteDatabase(config)
	case DBTypePebble:
		return NewPebbleDatabase(config)
	default:
		return nil, ErrUnsupportedDBType
	}
}
