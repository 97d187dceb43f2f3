package model

import "time"

type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "OrderCreated"
	EventOrderStatus    OutboxEventType = "OrderStatusChanged"
	EventOrderCancelled OutboxEventType = "OrderCancelled"
	EventPaymentResult  OutboxEventType = "PaymentResult"
)

// 通知ファンアウト用のアウトボックス。
// 注文を変更したトランザクションの中で書き、ディスパッチャが後から配信する。
// at-least-once。消費側はEventIDで重複排除すること。
type OutboxEvent struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   string          `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	EventType OutboxEventType `gorm:"type:varchar(50);not null;index" json:"event_type"`

	//Kafkaのパーティションキーに使う（同一注文の順序を守る）
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	Payload string `gorm:"type:text;not null" json:"payload"`

	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}
