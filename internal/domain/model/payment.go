package model

import "time"

type PaymentTxStatus string

const (
	PaymentTxStatusPending PaymentTxStatus = "PENDING"
	PaymentTxStatusSuccess PaymentTxStatus = "SUCCESS"
	PaymentTxStatusFailed  PaymentTxStatus = "FAILED"
)

// 決済トランザクション（append-only。更新せず行を重ねる）
// 同一注文に複数行あり得る（リトライ・重複コールバック）。SUCCESSは1行だけ。
type Payment struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	//COD・銀行振込はnil
	Gateway *string `gorm:"type:varchar(30)" json:"gateway"`

	//ゲートウェイ側の取引参照。重複コールバック検知のキー。
	GatewayTransactionRef *string `gorm:"type:varchar(100);uniqueIndex" json:"gateway_transaction_ref"`

	Amount int64           `gorm:"not null" json:"amount"`
	Status PaymentTxStatus `gorm:"type:varchar(20);not null" json:"status"`

	//監査用の生ペイロード
	RawPayload string `gorm:"type:text" json:"-"`

	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
