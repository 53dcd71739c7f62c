package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway/paystack"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// 決済ゲートウェイの約束
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, in paystack.InitializeInput) (paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (paystack.VerifyResult, error)
	VerifyWebhookSignature(body []byte, signature string) bool
}

// 為替レートの約束
type ExchangeRateSource interface {
	FetchRate(ctx context.Context, from string, to string) (decimal.Decimal, error)
}

// referenceに埋め込まれた注文番号を拾うパターン。
// reference追跡が失われたとき（初期化直後のクラッシュ等）のフォールバック。
var orderNumberPattern = regexp.MustCompile(`ORDER-\d+-[0-9A-F]{8}`)

type PaymentUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	users     repo.UserRepository
	unmatched repo.UnmatchedPaymentRepository
	gateway   PaymentGateway
	rates     ExchangeRateSource
	idGen     IDGenerator
	clock     Clock

	callbackURL     string
	defaultCurrency string
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	unmatched repo.UnmatchedPaymentRepository,
	gateway PaymentGateway,
	rates ExchangeRateSource,
	idGen IDGenerator,
	clock Clock,
	callbackURL string,
	defaultCurrency string,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:              tx,
		orders:          orders,
		users:           users,
		unmatched:       unmatched,
		gateway:         gateway,
		rates:           rates,
		idGen:           idGen,
		clock:           clock,
		callbackURL:     callbackURL,
		defaultCurrency: defaultCurrency,
	}
}

type InitializePaymentOutput struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// 試行ごとに新しいreferenceを作る（ゲートウェイはreference使い回しを拒む）。
// 注文番号を先頭に埋め込むのでフォールバック照合ができる。
func (u *PaymentUsecase) newPaymentReference(orderNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(u.idGen.NewID(), "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return orderNumber + "-" + suffix
}

// InitializePayment はゲートウェイのホスト決済セッションを作る。
// 注文の通貨が拒否されたら、為替レートでデフォルト通貨に換算して1回だけ再試行する。
// 失敗時は注文を一切変更しない。
func (u *PaymentUsecase) InitializePayment(ctx context.Context, userID int64, orderID int64) (InitializePaymentOutput, error) {
	if userID <= 0 {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if order.UserID != userID {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if order.PaymentStatus == model.PaymentStatusCompleted {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusBadRequest, "order already paid")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	in := paystack.InitializeInput{
		Reference:     u.newPaymentReference(order.OrderNumber),
		Email:         user.Email,
		Amount:        order.TotalPrice,
		Currency:      order.Currency,
		CallbackURL:   u.callbackURL,
		CustomerName:  user.Name,
		CustomerPhone: user.Phone,
		OrderNumber:   order.OrderNumber,
	}

	res, err := u.gateway.InitializeTransaction(ctx, in)
	if errors.Is(err, paystack.ErrUnsupportedCurrency) && order.Currency != u.defaultCurrency {
		//デフォルト通貨に換算して1回だけ再試行
		rate, rerr := u.rates.FetchRate(ctx, order.Currency, u.defaultCurrency)
		if rerr != nil {
			return InitializePaymentOutput{}, NewHTTPError(http.StatusBadGateway, "exchange rate unavailable")
		}

		//referenceも作り直す（ゲートウェイは使い回しを拒む）
		in.Reference = u.newPaymentReference(order.OrderNumber)
		in.Amount = decimal.NewFromInt(order.TotalPrice).Mul(rate).Round(0).IntPart()
		in.Currency = u.defaultCurrency

		res, err = u.gateway.InitializeTransaction(ctx, in)
	}
	if err != nil {
		if errors.Is(err, paystack.ErrUnsupportedCurrency) {
			return InitializePaymentOutput{}, NewHTTPError(http.StatusBadRequest, "unsupported currency")
		}
		return InitializePaymentOutput{}, NewHTTPError(http.StatusBadGateway, "payment initialization failed")
	}

	reference := res.Reference
	if reference == "" {
		reference = in.Reference
	}

	if err := u.orders.SetPaymentReference(ctx, order.ID, reference, model.PaymentStatusAwaitingPayment); err != nil {
		return InitializePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return InitializePaymentOutput{
		AuthorizationURL: res.AuthorizationURL,
		Reference:        reference,
	}, nil
}

type ReconcileOutput struct {
	Verified    bool       `json:"verified"`
	Matched     bool       `json:"matched"`
	OrderNumber string     `json:"order_number,omitempty"`
	Token       string     `json:"token,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ReconcileByReference はwebhookとクライアント照会の両方から呼ばれる。
// 何度呼ばれても同じ結果に収束する（completedの再照合は成功のno-op）。
func (u *PaymentUsecase) ReconcileByReference(ctx context.Context, reference string) (ReconcileOutput, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ReconcileOutput{}, NewHTTPError(http.StatusBadRequest, "reference is required")
	}

	res, err := u.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, paystack.ErrGatewayUnavailable) {
			return ReconcileOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
		}
		return ReconcileOutput{}, NewHTTPError(http.StatusBadGateway, "payment verification failed")
	}

	if res.Status != "success" {
		//未完了・失敗は状態を変えない
		return ReconcileOutput{Verified: false}, nil
	}

	order, found, err := u.matchOrder(ctx, reference)
	if err != nil {
		return ReconcileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found {
		//決済成功のシグナルは失わない。記録して手動リコンサイルへ。
		rec := model.UnmatchedPayment{
			Reference:     reference,
			Amount:        res.Amount,
			Currency:      res.Currency,
			GatewayStatus: res.Status,
			CreatedAt:     u.clock.Now(),
		}
		if err := u.unmatched.Record(ctx, rec); err != nil {
			return ReconcileOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return ReconcileOutput{Verified: true, Matched: false}, nil
	}

	var out ReconcileOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 条件付きUPDATE。二重照合のどちらが先でも1回しか進まず、後退もしない。
		if _, err := r.Orders().MarkPaymentCompleted(ctx, order.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// トークン発行はorder_numberで冪等（既存があればそれが返る）
		tok, err := r.Tokens().Create(ctx, newVerificationToken(order.ID, order.OrderNumber, u.clock.Now()))
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		expires := tok.ExpiresAt
		out = ReconcileOutput{
			Verified:    true,
			Matched:     true,
			OrderNumber: order.OrderNumber,
			Token:       tok.Token,
			ExpiresAt:   &expires,
		}
		return nil
	})

	if err != nil {
		return ReconcileOutput{}, err
	}
	return out, nil
}

// ListUnmatchedPayments は未解決の未突合決済を返す。手動リコンサイル用の作業キュー。
func (u *PaymentUsecase) ListUnmatchedPayments(ctx context.Context, limit int) ([]model.UnmatchedPayment, error) {
	items, err := u.unmatched.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

// 照合順：payment_reference完全一致→referenceに埋め込まれた注文番号。
func (u *PaymentUsecase) matchOrder(ctx context.Context, reference string) (model.Order, bool, error) {
	order, err := u.orders.FindByPaymentReference(ctx, reference)
	if err == nil {
		return order, true, nil
	}
	if err != repo.ErrNotFound {
		return model.Order{}, false, err
	}

	orderNumber := orderNumberPattern.FindString(reference)
	if orderNumber == "" {
		return model.Order{}, false, nil
	}

	order, err = u.orders.FindByOrderNumber(ctx, orderNumber)
	if err == repo.ErrNotFound {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return order, true, nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Status    string `json:"status"`
	} `json:"data"`
}

// HandleWebhook は署名検証に通った場合のみ本文を読む（fail closed）。
// charge.success以外のイベントは受理だけする。
func (u *PaymentUsecase) HandleWebhook(ctx context.Context, signature string, body []byte) (ReconcileOutput, error) {
	if !u.gateway.VerifyWebhookSignature(body, signature) {
		return ReconcileOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ReconcileOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if ev.Event != "charge.success" {
		return ReconcileOutput{}, nil
	}

	return u.ReconcileByReference(ctx, ev.Data.Reference)
}
