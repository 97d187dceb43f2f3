package repository

import (
	"context"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)

	// 重複コールバック検知（冪等キー＝ゲートウェイ取引参照）
	FindByGatewayRef(ctx context.Context, ref string) (model.Payment, error)

	ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error)
}
