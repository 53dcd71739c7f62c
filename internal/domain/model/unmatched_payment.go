package model

import "time"

// 決済は確認できたのに注文と突合できなかったもの。
// 取りこぼし防止のため記録して手動リコンサイルに回す。
type UnmatchedPayment struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference     string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"type:varchar(8)" json:"currency"`
	GatewayStatus string    `gorm:"type:varchar(32)" json:"gateway_status"`
	ResolvedAt    *time.Time `gorm:"index" json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}
