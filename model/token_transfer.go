package model

import "time"

// TokenTransfer audit row for a transaction sent by the service or on behalf
// of a user. Best effort and append only; the ledger is authoritative.
type TokenTransfer struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromAddress string    `gorm:"index;type:varchar(42);not null" json:"from_address"`
	ToAddress   string    `gorm:"index;type:varchar(42);not null" json:"to_address"`
	Amount      string    `gorm:"type:varchar(78);not null" json:"amount"` // whole tokens, decimal string
	TxHash      string    `gorm:"index;type:varchar(66);not null" json:"tx_hash"`
	BlockNumber int64     `json:"block_number"`
	Timestamp   time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName specify table name
func (TokenTransfer) TableName() string {
	return "token_transfers"
}
