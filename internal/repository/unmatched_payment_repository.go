package repository

import (
	"context"

	"app/internal/domain/model"
)

type UnmatchedPaymentRepository interface {
	// referenceで一意。再送されても1行のまま。
	Record(ctx context.Context, p model.UnmatchedPayment) error
	ListUnresolved(ctx context.Context, limit int) ([]model.UnmatchedPayment, error)
}
