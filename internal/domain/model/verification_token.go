package model

import "time"

// 決済完了後に注文確認ページを開くための短命クレデンシャル。
// UsageCountがMaxTokenUsageに達したら期限に関係なく無効。
const MaxTokenUsage = 3

type VerificationToken struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64     `gorm:"not null;index" json:"order_id"`
	OrderNumber string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	Token       string    `gorm:"type:varchar(128);not null" json:"-"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	Used        bool      `gorm:"not null;default:false" json:"used"`
	UsageCount  int       `gorm:"not null;default:0" json:"usage_count"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (VerificationToken) TableName() string {
	return "payment_verification_tokens"
}
