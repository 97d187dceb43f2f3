package model

import "time"

// カート明細
// (buyer_id, product_id) で一意。チェックアウト成功か明示削除で消える。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID   int64     `gorm:"not null;uniqueIndex:uq_cart_buyer_product" json:"buyer_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:uq_cart_buyer_product" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
