package model

import "time"

// 配送先住所（住所帳サービスの読み取りモデル。チェックアウト時のスナップショット元）
type Address struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(30);not null" json:"phone"`
	Line      string    `gorm:"type:varchar(255);not null" json:"line"`
	Ward      string    `gorm:"type:varchar(255)" json:"ward"`
	Province  string    `gorm:"type:varchar(255);not null" json:"province"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
