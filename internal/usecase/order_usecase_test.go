package usecase

import (
	"context"
	"testing"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newOrderTestEnv() (*TxManagerMock, *OrderRepoMock, *OrderItemRepoMock, *InventoryRepoMock, *PaymentRepoMock, *OutboxRepoMock, *AuditLogRepoMock) {
	tx := new(TxManagerMock)
	orders := new(OrderRepoMock)
	items := new(OrderItemRepoMock)
	inv := new(InventoryRepoMock)
	payments := new(PaymentRepoMock)
	outbox := new(OutboxRepoMock)
	audit := new(AuditLogRepoMock)

	tx.Repos = &TxReposMock{
		orders:     orders,
		orderItems: items,
		inventory:  inv,
		payments:   payments,
		outbox:     outbox,
		auditLogs:  audit,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	return tx, orders, items, inv, payments, outbox, audit
}

// =====================
// GetOrder tests
// =====================

func TestOrderUsecase_GetOrder_HidesOthersOrders(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusPending,
	}, nil)

	//無関係の買い手には404
	_, err := uc.GetOrder(context.Background(), 7, 99, model.RoleBuyer)
	assertErrContains(t, err, "not found")

	//無関係の販売者にも404
	_, err = uc.GetOrder(context.Background(), 7, 99, model.RoleSeller)
	assertErrContains(t, err, "not found")
}

func TestOrderUsecase_GetOrder_AdminSeesAll(t *testing.T) {
	tx, orders, items, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByID", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusPending,
	}, nil)
	items.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{}, nil)

	out, err := uc.GetOrder(context.Background(), 7, 555, model.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
}

// =====================
// UpdateStatus tests
// =====================

func TestOrderUsecase_UpdateStatus_BuyerForbidden(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusPending,
	}, nil)

	//本人の注文でも買い手は汎用更新不可
	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusConfirmed, 1, model.RoleBuyer)
	assertErrContains(t, err, "forbidden")
}

func TestOrderUsecase_UpdateStatus_SellerOnlyOwnOrders(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusPending,
	}, nil)

	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusConfirmed, 3, model.RoleSeller)
	assertErrContains(t, err, "forbidden")
}

func TestOrderUsecase_UpdateStatus_SellerCannotGoBackwards(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusShipping,
	}, nil)

	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusProcessing, 2, model.RoleSeller)
	assertErrContains(t, err, "illegal status transition")
}

func TestOrderUsecase_UpdateStatus_NobodyCancelsViaGenericPath(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusShipping,
	}, nil)

	//管理者でも汎用更新でCANCELLEDにはできない（専用Cancelのみ）
	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusCancelled, 555, model.RoleAdmin)
	assertErrContains(t, err, "illegal status transition")

	_, err = uc.UpdateStatus(context.Background(), 7, model.OrderStatusCancelled, 2, model.RoleSeller)
	assertErrContains(t, err, "illegal status transition")
}

func TestOrderUsecase_UpdateStatus_TerminalIsFrozen(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusDelivered,
	}, nil)

	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusShipping, 555, model.RoleAdmin)
	assertErrContains(t, err, "illegal status transition")
}

func TestOrderUsecase_UpdateStatus_CODSettlesOnDelivered(t *testing.T) {
	tx, orders, items, _, payments, outbox, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, OrderCode: "AGT-20260901-AAAA0001", BuyerID: 1, SellerID: 2,
		Status:        model.OrderStatusShipping,
		PaymentMethod: model.PaymentMethodCOD,
		PaymentStatus: model.PaymentStatusPending,
		TotalAmount:   150000,
	}, nil)
	orders.On("UpdateStatus", mock.Anything, int64(7), model.OrderStatusDelivered).Return(nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(7), model.PaymentStatusPaid).Return(nil)

	payments.On("Create", mock.Anything, mock.MatchedBy(func(p model.Payment) bool {
		return p.OrderID == 7 && p.Status == model.PaymentTxStatusSuccess && p.Amount == 150000
	})).Return(int64(1), nil)

	//PaymentResultとOrderStatusChangedの2イベント
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil).Times(2)
	items.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{}, nil)

	out, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusDelivered, 2, model.RoleSeller)
	assert.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusDelivered), out.Status)
	assert.Equal(t, string(model.PaymentStatusPaid), out.PaymentStatus)

	payments.AssertExpectations(t)
	outbox.AssertExpectations(t)
}

func TestOrderUsecase_UpdateStatus_PrepaidFailedCannotDeliver(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2,
		Status:        model.OrderStatusShipping,
		PaymentMethod: model.PaymentMethodVNPay,
		PaymentStatus: model.PaymentStatusFailed,
	}, nil)

	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusDelivered, 2, model.RoleSeller)
	assertErrContains(t, err, "illegal status transition")
}

func TestOrderUsecase_UpdateStatus_AdminWritesAuditLog(t *testing.T) {
	tx, orders, items, _, _, outbox, audit := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusShipping,
		PaymentMethod: model.PaymentMethodCOD,
		PaymentStatus: model.PaymentStatusPending,
	}, nil)
	orders.On("UpdateStatus", mock.Anything, int64(7), model.OrderStatusProcessing).Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)
	items.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{}, nil)

	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 555 &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceID == 7
	})).Return(nil)

	//管理者は巻き戻しもできるが監査ログが必ず残る
	_, err := uc.UpdateStatus(context.Background(), 7, model.OrderStatusProcessing, 555, model.RoleAdmin)
	assert.NoError(t, err)

	audit.AssertExpectations(t)
}

// =====================
// Cancel tests
// =====================

func TestOrderUsecase_Cancel_RestoresReservedQuantities(t *testing.T) {
	tx, orders, items, inv, _, outbox, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, OrderCode: "AGT-20260901-AAAA0001", BuyerID: 1, SellerID: 2,
		Status:        model.OrderStatusConfirmed,
		PaymentMethod: model.PaymentMethodCOD,
	}, nil)

	//明細スナップショットの量がそのまま戻ること
	items.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{
		{ProductID: 100, Quantity: 3},
		{ProductID: 101, Quantity: 5},
	}, nil)
	inv.On("IncreaseStock", mock.Anything, int64(100), int64(3)).Return(nil)
	inv.On("IncreaseStock", mock.Anything, int64(101), int64(5)).Return(nil)

	orders.On("UpdateStatus", mock.Anything, int64(7), model.OrderStatusCancelled).Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := uc.Cancel(context.Background(), 7, 1, model.RoleBuyer)
	assert.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusCancelled), out.Status)

	inv.AssertExpectations(t)
}

func TestOrderUsecase_Cancel_SecondCancelDoesNotDoubleRelease(t *testing.T) {
	tx, orders, _, inv, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusCancelled,
	}, nil)

	_, err := uc.Cancel(context.Background(), 7, 1, model.RoleBuyer)
	assertErrContains(t, err, "illegal status transition")

	//在庫は一切触らない
	inv.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Cancel_ShippingTooLate(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusShipping,
	}, nil)

	_, err := uc.Cancel(context.Background(), 7, 1, model.RoleBuyer)
	assertErrContains(t, err, "illegal status transition")
}

func TestOrderUsecase_Cancel_SellerForbidden(t *testing.T) {
	tx, orders, _, _, _, _, _ := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2, Status: model.OrderStatusPending,
	}, nil)

	_, err := uc.Cancel(context.Background(), 7, 2, model.RoleSeller)
	assertErrContains(t, err, "forbidden")
}

func TestOrderUsecase_Cancel_PaidOrderKeepsPaymentStatus(t *testing.T) {
	tx, orders, items, inv, _, outbox, audit := newOrderTestEnv()
	uc := NewOrderUsecase(tx)

	orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(model.Order{
		ID: 7, BuyerID: 1, SellerID: 2,
		Status:        model.OrderStatusConfirmed,
		PaymentMethod: model.PaymentMethodVNPay,
		PaymentStatus: model.PaymentStatusPaid,
	}, nil)
	items.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{
		{ProductID: 100, Quantity: 1},
	}, nil)
	inv.On("IncreaseStock", mock.Anything, int64(100), int64(1)).Return(nil)
	orders.On("UpdateStatus", mock.Anything, int64(7), model.OrderStatusCancelled).Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)
	audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	//管理者による強制キャンセル。返金は別プロセスなのでPAIDのまま。
	out, err := uc.Cancel(context.Background(), 7, 555, model.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, string(model.PaymentStatusPaid), out.PaymentStatus)

	orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// ListAdmin tests
// =====================

func TestOrderUsecase_ListAdmin_InvalidPaging(t *testing.T) {
	tx := new(TxManagerMock)
	uc := NewOrderUsecase(tx)

	_, err := uc.ListAdmin(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")

	_, err = uc.ListAdmin(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assertErrContains(t, err, "invalid limit")

	_, err = uc.ListAdmin(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 1000})
	assertErrContains(t, err, "invalid limit")
}
