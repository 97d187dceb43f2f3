package repository

import (
	"context"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page    int
	Limit   int
	Status  string
	BuyerID *int64
	From    *time.Time
	To      *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 行ロック付き取得。ステータス遷移・決済反映・キャンセルは
	// 必ずこれで取ってから書く（注文単位の直列化）。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindByOrderCodeForUpdate(ctx context.Context, orderCode string) (model.Order, error)

	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, ps model.PaymentStatus) error

	ListByBuyerID(ctx context.Context, buyerID int64, page, limit int) ([]model.Order, int64, error)
	ListBySellerID(ctx context.Context, sellerID int64, page, limit int) ([]model.Order, int64, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
