package model

import (
	"time"

	"gorm.io/gorm"
)

type ListingStatus string

const (
	ListingStatusPublished ListingStatus = "PUBLISHED"
	ListingStatusUnlisted  ListingStatus = "UNLISTED"
)

// 農産物（カタログ側が所有。当コアが書くのは在庫stockだけ）
type Product struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID      int64          `gorm:"not null;index" json:"seller_id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Unit          string         `gorm:"type:varchar(20);not null" json:"unit"`
	Price         int64          `gorm:"not null" json:"price"`
	Stock         int64          `gorm:"not null" json:"stock"`
	ListingStatus ListingStatus  `gorm:"type:varchar(20);not null;index" json:"listing_status"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// 購入可能か（公開中のみ）
func (p Product) IsPurchasable() bool {
	return p.ListingStatus == ListingStatusPublished
}
