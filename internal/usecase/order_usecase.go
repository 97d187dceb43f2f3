package usecase

import (
	"context"
	"net/http"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/metrics"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/notify"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"
)

// OrderUsecase は注文の参照・ステータス遷移・キャンセルを担当する。
type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type OrderItemOutput struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Unit         string `json:"unit"`
	PricePerUnit int64  `json:"price_per_unit"`
	Quantity     int64  `json:"quantity"`
	LineTotal    int64  `json:"line_total"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	OrderCode     string            `json:"order_code"`
	BuyerID       int64             `json:"buyer_id"`
	SellerID      int64             `json:"seller_id"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	PaymentStatus string            `json:"payment_status"`
	Subtotal      int64             `json:"subtotal"`
	ShippingFee   int64             `json:"shipping_fee"`
	Discount      int64             `json:"discount"`
	TotalAmount   int64             `json:"total_amount"`
	ShipName      string            `json:"ship_name"`
	ShipPhone     string            `json:"ship_phone"`
	ShipLine      string            `json:"ship_line"`
	ShipWard      string            `json:"ship_ward"`
	ShipProvince  string            `json:"ship_province"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Unit:         it.Unit,
			PricePerUnit: it.PricePerUnit,
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal,
		})
	}
	return OrderOutput{
		ID:            o.ID,
		OrderCode:     o.OrderCode,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		Discount:      o.Discount,
		TotalAmount:   o.TotalAmount,
		ShipName:      o.ShipName,
		ShipPhone:     o.ShipPhone,
		ShipLine:      o.ShipLine,
		ShipWard:      o.ShipWard,
		ShipProvince:  o.ShipProvince,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}

// 当事者（買い手・販売者本人）か管理者だけが見られる
func canViewOrder(o model.Order, callerID int64, role model.Role) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleBuyer:
		return o.BuyerID == callerID
	case model.RoleSeller:
		return o.SellerID == callerID
	}
	return false
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64, callerID int64, role model.Role) (OrderOutput, error) {
	if callerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !canViewOrder(o, callerID, role) {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, buyerID int64) ([]OrderOutput, error) {
	return u.listFor(ctx, func(ctx context.Context, r repo.TxRepos) ([]model.Order, error) {
		orders, _, err := r.Orders().ListByBuyerID(ctx, buyerID, 1, 50)
		return orders, err
	}, buyerID)
}

func (u *OrderUsecase) ListSellerOrders(ctx context.Context, sellerID int64) ([]OrderOutput, error) {
	return u.listFor(ctx, func(ctx context.Context, r repo.TxRepos) ([]model.Order, error) {
		orders, _, err := r.Orders().ListBySellerID(ctx, sellerID, 1, 50)
		return orders, err
	}, sellerID)
}

func (u *OrderUsecase) listFor(ctx context.Context, fetch func(context.Context, repo.TxRepos) ([]model.Order, error), callerID int64) ([]OrderOutput, error) {
	if callerID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := fetch(ctx, r)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 管理者用の注文一覧
func (u *OrderUsecase) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// UpdateStatus は汎用のステータス遷移。
// 遷移表で判定し、注文行をロックしてから書く（決済コールバックとの競合対策）。
// CANCELLEDへはここからは行けない（管理者でも専用のCancelを使う）。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, orderID int64, newStatus model.OrderStatus, callerID int64, role model.Role) (OrderOutput, error) {
	if callerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !model.IsValidStatus(newStatus) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//買い手は汎用更新不可、販売者は自分の注文だけ
		if role == model.RoleBuyer {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		if role == model.RoleSeller && o.SellerID != callerID {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		if !model.CanTransition(role, o.Status, newStatus) {
			return NewIllegalTransitionError(o.Status, newStatus)
		}

		//前払いで支払い失敗のままならDELIVEREDにできない
		if newStatus == model.OrderStatusDelivered &&
			o.PaymentMethod.IsPrepaid() && o.PaymentStatus == model.PaymentStatusFailed {
			return NewIllegalTransitionError(o.Status, newStatus)
		}

		prev := o.Status
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//COD精算：配達確認の時点で支払い済みとみなす
		if newStatus == model.OrderStatusDelivered &&
			o.PaymentMethod == model.PaymentMethodCOD &&
			o.PaymentStatus == model.PaymentStatusPending {
			now := time.Now()
			if _, err := r.Payments().Create(ctx, model.Payment{
				OrderID:     orderID,
				Amount:      o.TotalAmount,
				Status:      model.PaymentTxStatusSuccess,
				ProcessedAt: now,
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Orders().UpdatePaymentStatus(ctx, orderID, model.PaymentStatusPaid); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			o.PaymentStatus = model.PaymentStatusPaid

			if err := appendOutboxEvent(ctx, r, model.EventPaymentResult, orderID, notify.PaymentResultPayload{
				OrderID:   orderID,
				OrderCode: o.OrderCode,
				BuyerID:   o.BuyerID,
				SellerID:  o.SellerID,
				Success:   true,
				Amount:    o.TotalAmount,
				Method:    string(o.PaymentMethod),
			}); err != nil {
				return err
			}
		}

		if err := appendOutboxEvent(ctx, r, model.EventOrderStatus, orderID, notify.OrderStatusChangedPayload{
			OrderID:    orderID,
			OrderCode:  o.OrderCode,
			BuyerID:    o.BuyerID,
			SellerID:   o.SellerID,
			PrevStatus: string(prev),
			NewStatus:  string(newStatus),
		}); err != nil {
			return err
		}

		//管理者の強制変更は監査ログを残す
		if role == model.RoleAdmin {
			if err := r.AuditLogs().Create(ctx, model.AuditLog{
				ActorUserID:  callerID,
				Action:       model.AuditActionUpdateOrderStatus,
				ResourceType: model.AuditResourceOrder,
				ResourceID:   orderID,
				BeforeJSON:   `{"status":"` + string(prev) + `"}`,
				AfterJSON:    `{"status":"` + string(newStatus) + `"}`,
				CreatedAt:    time.Now(),
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		o.Status = newStatus
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	metrics.OrderTransitionTotal.WithLabelValues(string(newStatus)).Inc()
	return out, nil
}

// Cancel は専用のキャンセル操作。
// 買い手本人か管理者のみ。SHIPPING以降は不可。
// キャンセルと在庫戻しは同一トランザクション（戻せなければキャンセルも成立しない）。
// 支払い済みの注文のpaymentStatusは触らない（返金は別プロセス）。
func (u *OrderUsecase) Cancel(ctx context.Context, orderID int64, callerID int64, role model.Role) (OrderOutput, error) {
	if callerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		switch role {
		case model.RoleAdmin:
			// OK（紛争解決の抜け道）
		case model.RoleBuyer:
			if o.BuyerID != callerID {
				return NewHTTPError(http.StatusForbidden, "forbidden")
			}
		default:
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		if !o.Status.IsCancellable() {
			return NewIllegalTransitionError(o.Status, model.OrderStatusCancelled)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//チェックアウトで予約した量そのものを戻す（カタログから再導出しない）
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		prev := o.Status
		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := appendOutboxEvent(ctx, r, model.EventOrderCancelled, orderID, notify.OrderCancelledPayload{
			OrderID:    orderID,
			OrderCode:  o.OrderCode,
			BuyerID:    o.BuyerID,
			SellerID:   o.SellerID,
			PrevStatus: string(prev),
			ActorRole:  string(role),
		}); err != nil {
			return err
		}

		if role == model.RoleAdmin {
			if err := r.AuditLogs().Create(ctx, model.AuditLog{
				ActorUserID:  callerID,
				Action:       model.AuditActionCancelOrder,
				ResourceType: model.AuditResourceOrder,
				ResourceID:   orderID,
				BeforeJSON:   `{"status":"` + string(prev) + `"}`,
				AfterJSON:    `{"status":"CANCELLED"}`,
				CreatedAt:    time.Now(),
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	metrics.OrderTransitionTotal.WithLabelValues(string(model.OrderStatusCancelled)).Inc()
	return out, nil
}
