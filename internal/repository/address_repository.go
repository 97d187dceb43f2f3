package repository

import (
	"context"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
)

// 住所帳（外部コラボレータ）。チェックアウト時のスナップショット元としてだけ読む。
type AddressRepository interface {
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
}
