package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewVerificationToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tok := newVerificationToken(55, "ORDER-1748779200000-AABBCCDD", now)

	assert.Equal(t, int64(55), tok.OrderID)
	assert.Equal(t, "ORDER-1748779200000-AABBCCDD", tok.OrderNumber)
	//32バイトのHEX＝64文字
	assert.Len(t, tok.Token, 64)
	assert.Equal(t, now.Add(24*time.Hour), tok.ExpiresAt)
	assert.False(t, tok.Used)
	assert.Equal(t, 0, tok.UsageCount)

	//毎回違う値になる
	other := newVerificationToken(55, "ORDER-1748779200000-AABBCCDD", now)
	assert.NotEqual(t, tok.Token, other.Token)
}

func newTokenUsecaseForTest(now time.Time) (*TokenUsecase, *TokenRepoMock, *OrderRepoMock, *OrderItemRepoMock) {
	tokens := new(TokenRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	uc := NewTokenUsecase(tokens, orders, orderItems, &fixedClock{now: now})
	return uc, tokens, orders, orderItems
}

func TestVerifyToken_ConsumesOneUse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, tokens, orders, orderItems := newTokenUsecaseForTest(now)

	orderNumber := "ORDER-1748779200000-AABBCCDD"
	stored := model.VerificationToken{
		OrderID:     55,
		OrderNumber: orderNumber,
		Token:       "deadbeef",
		ExpiresAt:   now.Add(12 * time.Hour),
		UsageCount:  0,
	}
	tokens.On("FindByOrderNumber", mock.Anything, orderNumber).Return(stored, nil)
	tokens.On("ConsumeUse", mock.Anything, orderNumber, "deadbeef", now).Return(true, nil)
	orders.On("FindByOrderNumber", mock.Anything, orderNumber).Return(model.Order{
		ID: 55, OrderNumber: orderNumber, UserID: 1, TotalPrice: 2000,
	}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(55)).Return([]model.OrderItem{
		{ProductID: 7, ProductNameSnapshot: "Tシャツ", UnitPriceSnapshot: 1000, Quantity: 2},
	}, nil)

	out, err := uc.VerifyToken(context.Background(), orderNumber, "deadbeef")

	assert.NoError(t, err)
	assert.Equal(t, orderNumber, out.Order.OrderNumber)
	assert.Equal(t, int64(2000), out.Order.TotalPrice)
	assert.Len(t, out.Order.Items, 1)
	//1回消費したので残り2回
	assert.Equal(t, 2, out.RemainingUses)
}

func TestVerifyToken_ThirdUseSucceedsWithZeroRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, tokens, orders, orderItems := newTokenUsecaseForTest(now)

	orderNumber := "ORDER-1748779200000-AABBCCDD"
	stored := model.VerificationToken{
		OrderID:     55,
		OrderNumber: orderNumber,
		Token:       "deadbeef",
		ExpiresAt:   now.Add(12 * time.Hour),
		UsageCount:  2,
	}
	tokens.On("FindByOrderNumber", mock.Anything, orderNumber).Return(stored, nil)
	//上限ちょうどの3回目も消費は成功する
	tokens.On("ConsumeUse", mock.Anything, orderNumber, "deadbeef", now).Return(true, nil)
	orders.On("FindByOrderNumber", mock.Anything, orderNumber).Return(model.Order{ID: 55, OrderNumber: orderNumber}, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(55)).Return([]model.OrderItem{}, nil)

	out, err := uc.VerifyToken(context.Background(), orderNumber, "deadbeef")

	assert.NoError(t, err)
	assert.Equal(t, 0, out.RemainingUses)
}

func TestVerifyToken_UsageLimitReached(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, tokens, orders, _ := newTokenUsecaseForTest(now)

	orderNumber := "ORDER-1748779200000-AABBCCDD"
	stored := model.VerificationToken{
		OrderID:     55,
		OrderNumber: orderNumber,
		Token:       "deadbeef",
		ExpiresAt:   now.Add(12 * time.Hour),
		Used:        true,
		UsageCount:  model.MaxTokenUsage,
	}
	tokens.On("FindByOrderNumber", mock.Anything, orderNumber).Return(stored, nil)
	tokens.On("ConsumeUse", mock.Anything, orderNumber, "deadbeef", now).Return(false, nil)

	_, err := uc.VerifyToken(context.Background(), orderNumber, "deadbeef")

	httpErr, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "token usage limit reached", httpErr.Message)
	orders.AssertNotCalled(t, "FindByOrderNumber", mock.Anything, mock.Anything)
}

func TestVerifyToken_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, tokens, _, _ := newTokenUsecaseForTest(now)

	orderNumber := "ORDER-1748779200000-AABBCCDD"
	stored := model.VerificationToken{
		OrderID:     55,
		OrderNumber: orderNumber,
		Token:       "deadbeef",
		ExpiresAt:   now.Add(-time.Hour),
		UsageCount:  0,
	}
	tokens.On("FindByOrderNumber", mock.Anything, orderNumber).Return(stored, nil)
	tokens.On("ConsumeUse", mock.Anything, orderNumber, "deadbeef", now).Return(false, nil)

	_, err := uc.VerifyToken(context.Background(), orderNumber, "deadbeef")

	httpErr, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "token expired", httpErr.Message)
}

func TestVerifyToken_WrongToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, tokens, _, _ := newTokenUsecaseForTest(now)

	orderNumber := "ORDER-1748779200000-AABBCCDD"
	stored := model.VerificationToken{
		OrderID:     55,
		OrderNumber: orderNumber,
		Token:       "deadbeef",
		ExpiresAt:   now.Add(12 * time.Hour),
	}
	tokens.On("FindByOrderNumber", mock.Anything, orderNumber).Return(stored, nil)
	tokens.On("ConsumeUse", mock.Anything, orderNumber, "wrong", now).Return(false, nil)

	_, err := uc.VerifyToken(context.Background(), orderNumber, "wrong")

	httpErr, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "invalid token", httpErr.Message)
}

func TestVerifyToken_NotFound(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, tokens, _, _ := newTokenUsecaseForTest(now)

	tokens.On("FindByOrderNumber", mock.Anything, "ORDER-1748779200000-AABBCCDD").Return(model.VerificationToken{}, repo.ErrNotFound)

	_, err := uc.VerifyToken(context.Background(), "ORDER-1748779200000-AABBCCDD", "deadbeef")

	httpErr, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestVerifyToken_MissingInput(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc, _, _, _ := newTokenUsecaseForTest(now)

	_, err := uc.VerifyToken(context.Background(), "", "deadbeef")

	httpErr, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
}
