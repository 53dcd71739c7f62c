package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// 決済初期化の結果を保存（reference + awaiting_payment）
	SetPaymentReference(ctx context.Context, orderID int64, reference string, status model.PaymentStatus) error

	// payment_statusをcompletedへ、statusがpendingならprocessingへ、1文の条件付きUPDATEで進める。
	// 既にcompletedなら何もせずfalse（冪等・後退なし）。
	MarkPaymentCompleted(ctx context.Context, orderID int64) (bool, error)
}
