package repository

import (
	"context"
	"errors"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return p.ID, nil
}

func (r *PaymentGormRepository) FindByGatewayRef(ctx context.Context, ref string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).First(&p, "gateway_transaction_ref = ?", ref).Error
	if err != nil {
		if isNotFound(err) {
			return model.Payment{}, repo.ErrNotFound
		}
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	var ps []model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&ps).Error
	if err != nil {
		return nil, err
	}
	return ps, nil
}
