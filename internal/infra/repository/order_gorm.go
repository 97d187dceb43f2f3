package repository

import (
	"context"
	"errors"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).First(&o, "id = ?", orderID).Error
	if err != nil {
		if isNotFound(err) {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, err
	}
	return o, nil
}

// SELECT ... FOR UPDATE。遷移と決済コールバックの競合を注文単位で直列化する。
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", orderID).Error
	if err != nil {
		if isNotFound(err) {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByOrderCodeForUpdate(ctx context.Context, orderCode string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "order_code = ?", orderCode).Error
	if err != nil {
		if isNotFound(err) {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) UpdatePaymentStatus(ctx context.Context, orderID int64, ps model.PaymentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", ps)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) ListByBuyerID(ctx context.Context, buyerID int64, page, limit int) ([]model.Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("buyer_id = ?", buyerID), page, limit)
}

func (r *OrderGormRepository) ListBySellerID(ctx context.Context, sellerID int64, page, limit int) ([]model.Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("seller_id = ?", sellerID), page, limit)
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BuyerID != nil {
		q = q.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	return r.list(ctx, q, f.Page, f.Limit)
}

func (r *OrderGormRepository) list(ctx context.Context, q *gorm.DB, page, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := q.Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := q.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
