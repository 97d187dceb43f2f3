package notify

import (
	"encoding/json"
	"time"
)

// Kafkaへ流す通知イベントの封筒。
// EventIDはアウトボックス行のuuid。消費側はこれで重複排除する。
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

const ProducerName = "agritrade-order-api"

// ---- イベントごとのペイロード ----

type OrderCreatedPayload struct {
	OrderID       int64  `json:"order_id"`
	OrderCode     string `json:"order_code"`
	BuyerID       int64  `json:"buyer_id"`
	SellerID      int64  `json:"seller_id"`
	PaymentMethod string `json:"payment_method"`
	TotalAmount   int64  `json:"total_amount"`
}

type OrderStatusChangedPayload struct {
	OrderID    int64  `json:"order_id"`
	OrderCode  string `json:"order_code"`
	BuyerID    int64  `json:"buyer_id"`
	SellerID   int64  `json:"seller_id"`
	PrevStatus string `json:"prev_status"`
	NewStatus  string `json:"new_status"`
}

type OrderCancelledPayload struct {
	OrderID    int64  `json:"order_id"`
	OrderCode  string `json:"order_code"`
	BuyerID    int64  `json:"buyer_id"`
	SellerID   int64  `json:"seller_id"`
	PrevStatus string `json:"prev_status"`
	ActorRole  string `json:"actor_role"`
}

type PaymentResultPayload struct {
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	BuyerID   int64  `json:"buyer_id"`
	SellerID  int64  `json:"seller_id"`
	Success   bool   `json:"success"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}
