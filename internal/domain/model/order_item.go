package model

import "time"

// 注文明細（チェックアウト時点のスナップショット。以後不変）
type OrderItem struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64     `gorm:"not null;index" json:"order_id"`
	ProductID    int64     `gorm:"not null;index" json:"product_id"`
	ProductName  string    `gorm:"type:varchar(255);not null" json:"product_name"`
	Unit         string    `gorm:"type:varchar(20);not null" json:"unit"`
	PricePerUnit int64     `gorm:"not null" json:"price_per_unit"`
	Quantity     int64     `gorm:"not null" json:"quantity"`
	LineTotal    int64     `gorm:"not null" json:"line_total"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
