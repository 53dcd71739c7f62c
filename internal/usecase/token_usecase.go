package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// トークンの有効期間
const tokenTTL = 24 * time.Hour

// 決済確定時に発行する確認トークン。値は暗号乱数32バイトのHEX。
func newVerificationToken(orderID int64, orderNumber string, now time.Time) model.VerificationToken {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/randが読めない環境では動かせない
		panic(err)
	}

	return model.VerificationToken{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Token:       hex.EncodeToString(buf),
		ExpiresAt:   now.Add(tokenTTL),
		Used:        false,
		UsageCount:  0,
		CreatedAt:   now,
	}
}

// TokenUsecase は注文確認ページ用トークンの検証を行う。
// 再認証なしで数回だけリロードを許し、無期限の共有は防ぐ。
type TokenUsecase struct {
	tokens     repo.VerificationTokenRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	clock      Clock
}

func NewTokenUsecase(
	tokens repo.VerificationTokenRepository,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	clock Clock,
) *TokenUsecase {
	return &TokenUsecase{
		tokens:     tokens,
		orders:     orders,
		orderItems: orderItems,
		clock:      clock,
	}
}

type VerifyTokenOutput struct {
	Order         OrderOutput `json:"order"`
	RemainingUses int         `json:"remaining_uses"`
}

// VerifyToken は一致・未失効・使用上限内のときだけ1回分消費して注文を返す。
// 3回目の使用は成功と同時にトークンを使用済みにする。
func (u *TokenUsecase) VerifyToken(ctx context.Context, orderNumber string, token string) (VerifyTokenOutput, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	token = strings.TrimSpace(token)
	if orderNumber == "" || token == "" {
		return VerifyTokenOutput{}, NewHTTPError(http.StatusBadRequest, "order_number and token are required")
	}

	now := u.clock.Now()

	//存在しないのか、失効/上限なのかを区別して返す
	stored, err := u.tokens.FindByOrderNumber(ctx, orderNumber)
	if err == repo.ErrNotFound {
		return VerifyTokenOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return VerifyTokenOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	consumed, err := u.tokens.ConsumeUse(ctx, orderNumber, token, now)
	if err != nil {
		return VerifyTokenOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !consumed {
		if stored.Token != token {
			return VerifyTokenOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		if stored.Used || stored.UsageCount >= model.MaxTokenUsage {
			return VerifyTokenOutput{}, NewHTTPError(http.StatusUnauthorized, "token usage limit reached")
		}
		return VerifyTokenOutput{}, NewHTTPError(http.StatusUnauthorized, "token expired")
	}

	order, err := u.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return VerifyTokenOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.orderItems.ListByOrderID(ctx, order.ID)
	if err != nil {
		return VerifyTokenOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	remaining := model.MaxTokenUsage - (stored.UsageCount + 1)
	if remaining < 0 {
		remaining = 0
	}

	return VerifyTokenOutput{
		Order:         toOrderOutput(order, items),
		RemainingUses: remaining,
	}, nil
}
