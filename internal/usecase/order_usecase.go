package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type OrderUsecase struct {
	tx    repo.TransactionManager
	idGen IDGenerator
	clock Clock
}

func NewOrderUsecase(tx repo.TransactionManager, idGen IDGenerator, clock Clock) *OrderUsecase {
	return &OrderUsecase{tx: tx, idGen: idGen, clock: clock}
}

type CreateOrderInput struct {
	ShippingAddress string
	ShippingMethod  string
	PaymentMethod   string
	Currency        string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Size      string `json:"size,omitempty"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"order_number"`
	UserID        int64             `json:"user_id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	PaymentMethod string            `json:"payment_method"`
	Currency      string            `json:"currency"`
	TotalPrice    int64             `json:"total_price"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

// 注文番号。timestamp+乱数の採番をUUID由来に置き換えた。
// 参照文字列からの抽出ができるよう ORDER-<millis>-<8桁HEX> の形は保つ。
func (u *OrderUsecase) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(u.idGen.NewID(), "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "ORDER-" + strconv.FormatInt(u.clock.Now().UnixMilli(), 10) + "-" + suffix
}

// CreateOrder はカートを注文へ確定する。
// カート読込→合計→注文＋明細作成→在庫減算→カートクリアまでを1トランザクションで行い、
// 途中で失敗したら全て巻き戻す。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping_address is required")
	}
	method := model.PaymentMethod(in.PaymentMethod)
	if method != model.PaymentMethodCard && method != model.PaymentMethodBankTransfer {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "currency is required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		now := u.clock.Now()

		//明細スナップショット＋合計
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var total int64 = 0

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//在庫減算（足りないなら false）
			ok, err := r.Products().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   ci.UnitPriceSnapshot,
				Size:                ci.Size,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			total += ci.UnitPriceSnapshot * ci.Quantity
		}

		//銀行振込は awaiting_payment、それ以外は pending で開始
		paymentStatus := model.PaymentStatusPending
		if method == model.PaymentMethodBankTransfer {
			paymentStatus = model.PaymentStatusAwaitingPayment
		}

		order := model.Order{
			OrderNumber:     u.newOrderNumber(),
			UserID:          userID,
			Status:          model.OrderStatusPending,
			PaymentStatus:   paymentStatus,
			PaymentMethod:   method,
			ShippingAddress: in.ShippingAddress,
			ShippingMethod:  in.ShippingMethod,
			Currency:        currency,
			TotalPrice:      total,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: string(o.PaymentMethod),
		Currency:      o.Currency,
		TotalPrice:    o.TotalPrice,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}
