package model

import "time"

// User registered identity. PrivateKey holds only the SHA-256 hex digest of
// the wallet key; the raw key is returned once at registration.
type User struct {
	UserID        string    `gorm:"primaryKey;type:varchar(255)" json:"user_id"`
	WalletAddress string    `gorm:"index;type:varchar(42);not null" json:"wallet_address"`
	PrivateKey    string    `gorm:"type:varchar(64);not null" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specify table name
func (User) TableName() string {
	return "users"
}
