package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusAwaitingPayment PaymentStatus = "awaiting_payment"
	PaymentStatusCompleted       PaymentStatus = "completed"
	PaymentStatusFailed          PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// OrderNumberは作成時に採番して以後不変。
// PaymentReferenceはゲートウェイ初期化時に入り、照合に使う。
type Order struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber      string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID           int64         `gorm:"not null;index" json:"user_id"`
	Status           OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	PaymentMethod    PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentReference string        `gorm:"type:varchar(128);index" json:"payment_reference,omitempty"`
	ShippingAddress  string        `gorm:"type:text;not null" json:"shipping_address"`
	ShippingMethod   string        `gorm:"type:varchar(50)" json:"shipping_method"`
	Currency         string        `gorm:"type:varchar(8);not null" json:"currency"`
	TotalPrice       int64         `gorm:"not null" json:"total_price"`
	CreatedAt        time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
