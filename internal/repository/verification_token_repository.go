package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type VerificationTokenRepository interface {
	// order_numberにつき1件。競合したら既存行を返すこと（冪等な発行）。
	Create(ctx context.Context, t model.VerificationToken) (model.VerificationToken, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (model.VerificationToken, error)

	// 有効（未失効・未使用上限内）な場合だけusage_countを+1する条件付きUPDATE。
	// 3回目の消費でusedもtrueになる。消費できなければfalse。
	ConsumeUse(ctx context.Context, orderNumber string, token string, now time.Time) (bool, error)
}
