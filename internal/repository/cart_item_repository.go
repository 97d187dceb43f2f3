package repository

import (
	"context"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
)

type CartItemRepository interface {
	ListByBuyerID(ctx context.Context, buyerID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)

	// 同一商品は数量加算
	UpsertByBuyerAndProduct(ctx context.Context, buyerID, productID, qty int64) error

	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error

	// チェックアウトで消費した分だけ消す
	DeleteByBuyerAndProducts(ctx context.Context, buyerID int64, productIDs []int64) error
}
