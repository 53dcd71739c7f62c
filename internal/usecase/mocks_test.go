package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway/paystack"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// テスト用のClock / IDGenerator
// =====================

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type fixedIDGen struct {
	id string
}

func (g *fixedIDGen) NewID() string { return g.id }

// 呼ぶたびに次のIDを返す
type seqIDGen struct {
	ids []string
	i   int
}

func (g *seqIDGen) NewID() string {
	id := g.ids[g.i%len(g.ids)]
	g.i++
	return id
}

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type txReposStub struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	products   repo.ProductRepository
	tokens     repo.VerificationTokenRepository
}

func (r *txReposStub) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposStub) OrderItems() repo.OrderItemRepository     { return r.orderItems }
func (r *txReposStub) Carts() repo.CartRepository               { return r.carts }
func (r *txReposStub) CartItems() repo.CartItemRepository       { return r.cartItems }
func (r *txReposStub) Products() repo.ProductRepository         { return r.products }
func (r *txReposStub) Tokens() repo.VerificationTokenRepository { return r.tokens }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	args := m.Called(ctx, orderNumber)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByPaymentReference(ctx context.Context, reference string) (model.Order, error) {
	args := m.Called(ctx, reference)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) SetPaymentReference(ctx context.Context, orderID int64, reference string, status model.PaymentStatus) error {
	args := m.Called(ctx, orderID, reference, status)
	return args.Error(0)
}

func (m *OrderRepoMock) MarkPaymentCompleted(ctx context.Context, orderID int64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, size string, addQty int64, unitPriceSnapshot int64) error {
	args := m.Called(ctx, cartID, productID, size, addQty, unitPriceSnapshot)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

type TokenRepoMock struct{ mock.Mock }

func (m *TokenRepoMock) Create(ctx context.Context, t model.VerificationToken) (model.VerificationToken, error) {
	args := m.Called(ctx, t)
	tok, _ := args.Get(0).(model.VerificationToken)
	return tok, args.Error(1)
}

func (m *TokenRepoMock) FindByOrderNumber(ctx context.Context, orderNumber string) (model.VerificationToken, error) {
	args := m.Called(ctx, orderNumber)
	tok, _ := args.Get(0).(model.VerificationToken)
	return tok, args.Error(1)
}

func (m *TokenRepoMock) ConsumeUse(ctx context.Context, orderNumber string, token string, now time.Time) (bool, error) {
	args := m.Called(ctx, orderNumber, token, now)
	return args.Bool(0), args.Error(1)
}

type UnmatchedRepoMock struct{ mock.Mock }

func (m *UnmatchedRepoMock) Record(ctx context.Context, p model.UnmatchedPayment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *UnmatchedRepoMock) ListUnresolved(ctx context.Context, limit int) ([]model.UnmatchedPayment, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]model.UnmatchedPayment)
	return items, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// =====================
// Gateway / Rate mocks
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) InitializeTransaction(ctx context.Context, in paystack.InitializeInput) (paystack.InitializeResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(paystack.InitializeResult)
	return res, args.Error(1)
}

func (m *GatewayMock) VerifyTransaction(ctx context.Context, reference string) (paystack.VerifyResult, error) {
	args := m.Called(ctx, reference)
	res, _ := args.Get(0).(paystack.VerifyResult)
	return res, args.Error(1)
}

func (m *GatewayMock) VerifyWebhookSignature(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

type RateSourceMock struct{ mock.Mock }

func (m *RateSourceMock) FetchRate(ctx context.Context, from string, to string) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	rate, _ := args.Get(0).(decimal.Decimal)
	return rate, args.Error(1)
}
