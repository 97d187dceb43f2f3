package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipping   OrderStatus = "SHIPPING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodVNPay        PaymentMethod = "VNPAY"
	PaymentMethodMoMo         PaymentMethod = "MOMO"
)

// 注文側の支払いサマリ。Payment行とは別で、成功した1行だけがPAIDへ反映する。
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// 注文（1注文=1販売者。複数販売者カートは注文を分割する）
type Order struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderCode     string        `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_code"`
	BuyerID       int64         `gorm:"not null;index" json:"buyer_id"`
	SellerID      int64         `gorm:"not null;index" json:"seller_id"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`

	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	ShippingFee int64 `gorm:"not null" json:"shipping_fee"`
	Discount    int64 `gorm:"not null" json:"discount"`
	//total = subtotal + shipping_fee - discount
	TotalAmount int64 `gorm:"not null" json:"total_amount"`

	//配送先スナップショット（住所レコードは参照しない）
	ShipName     string `gorm:"type:varchar(255);not null" json:"ship_name"`
	ShipPhone    string `gorm:"type:varchar(30);not null" json:"ship_phone"`
	ShipLine     string `gorm:"type:varchar(255);not null" json:"ship_line"`
	ShipWard     string `gorm:"type:varchar(255)" json:"ship_ward"`
	ShipProvince string `gorm:"type:varchar(255);not null" json:"ship_province"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// オンライン前払いか（COD以外）
func (m PaymentMethod) IsPrepaid() bool {
	return m != PaymentMethodCOD
}

// 決済ゲートウェイ経由か
func (m PaymentMethod) IsGateway() bool {
	return m == PaymentMethodVNPay || m == PaymentMethodMoMo
}
