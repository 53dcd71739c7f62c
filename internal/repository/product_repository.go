package repository

import (
	"context"

	"app/internal/domain/model"
)

// 商品の取得と在庫減算だけを約束。
// カタログ検索APIは持たない。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)

	// 在庫が足りるときだけ減らす（条件付きUPDATE）。足りなければfalse。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
}
