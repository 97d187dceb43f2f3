package repository

import (
	"context"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

func (r *CartItemGormRepository) ListByBuyerID(ctx context.Context, buyerID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CartItemGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var it model.CartItem
	err := r.db.WithContext(ctx).First(&it, "id = ?", cartItemID).Error
	if err != nil {
		if isNotFound(err) {
			return model.CartItem{}, repo.ErrNotFound
		}
		return model.CartItem{}, err
	}
	return it, nil
}

// 同一商品は数量加算のUpsert
func (r *CartItemGormRepository) UpsertByBuyerAndProduct(ctx context.Context, buyerID, productID, qty int64) error {
	item := model.CartItem{
		BuyerID:   buyerID,
		ProductID: productID,
		Quantity:  qty,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "buyer_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&item).Error
}

func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartItemGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, "id = ?", cartItemID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartItemGormRepository) DeleteByBuyerAndProducts(ctx context.Context, buyerID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id IN ?", buyerID, productIDs).
		Delete(&model.CartItem{}).Error
}
