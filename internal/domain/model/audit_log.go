package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	//管理者による注文ステータス強制変更
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//管理者による強制キャンセル
	AuditActionCancelOrder AuditAction = "CANCEL_ORDER"
	//銀行振込の入金確認
	AuditActionConfirmPayment AuditAction = "CONFIRM_PAYMENT"
)

type AuditResourceType string

const (
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourcePayment AuditResourceType = "payment"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
