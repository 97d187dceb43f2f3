package repository

import (
	"context"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
)

// カタログ読み取り。価格・掲載状態・販売者の解決に使う。
type ProductRepository interface {
	FindByID(ctx context.Context, productID int64) (model.Product, error)
	FindByIDs(ctx context.Context, productIDs []int64) ([]model.Product, error)
}
