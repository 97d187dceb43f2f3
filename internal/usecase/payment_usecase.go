package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/metrics"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/notify"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/payment/gateway"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"go.uber.org/zap"
)

// PaymentUsecase は3つの決済モード（COD・銀行振込・ゲートウェイ）を
// 注文のステータス／支払いステータスへ写す。
// ゲートウェイコールバックは冪等（キー＝取引参照）。
type PaymentUsecase struct {
	tx       repo.TransactionManager
	gateways *gateway.Registry
	bank     BankAccount
	log      *zap.Logger
}

// 銀行振込の受取口座（設定から渡す）
type BankAccount struct {
	BankName      string
	AccountName   string
	AccountNumber string
}

func NewPaymentUsecase(tx repo.TransactionManager, gateways *gateway.Registry, bank BankAccount, log *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, gateways: gateways, bank: bank, log: log}
}

// BankTransferInfo は銀行振込注文の振込案内を返す（買い手本人のみ）。
func (u *PaymentUsecase) BankTransferInfo(ctx context.Context, buyerID int64, orderID int64) (BankTransferInfo, error) {
	if buyerID <= 0 {
		return BankTransferInfo{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return BankTransferInfo{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out BankTransferInfo
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.BuyerID != buyerID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if o.PaymentMethod != model.PaymentMethodBankTransfer {
			return NewHTTPError(http.StatusBadRequest, "not a bank transfer order")
		}

		out = BankTransferInfo{
			OrderCode:     o.OrderCode,
			BankName:      u.bank.BankName,
			AccountName:   u.bank.AccountName,
			AccountNumber: u.bank.AccountNumber,
			Amount:        o.TotalAmount,
			TransferRef:   transferRefFor(o.OrderCode),
		}
		return nil
	})
	if err != nil {
		return BankTransferInfo{}, err
	}
	return out, nil
}

// CreatePaymentURL はゲートウェイ注文のリダイレクトURLを作る（買い手本人のみ）。
func (u *PaymentUsecase) CreatePaymentURL(ctx context.Context, buyerID int64, orderID int64, clientIP string) (string, error) {
	if buyerID <= 0 {
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.BuyerID != buyerID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if !o.PaymentMethod.IsGateway() {
			return NewHTTPError(http.StatusBadRequest, "not a gateway order")
		}
		if o.PaymentStatus == model.PaymentStatusPaid {
			return NewHTTPError(http.StatusConflict, "already paid")
		}
		if o.Status.IsTerminal() {
			return NewIllegalTransitionError(o.Status, o.Status)
		}
		order = o
		return nil
	})
	if err != nil {
		return "", err
	}

	gw, err := u.gateways.Lookup(string(order.PaymentMethod))
	if err != nil {
		return "", NewHTTPError(http.StatusBadRequest, "unsupported gateway")
	}

	payURL, err := gw.BuildPaymentURL(gateway.PaymentOrder{
		OrderCode: order.OrderCode,
		Amount:    order.TotalAmount,
		OrderInfo: "Thanh toan don hang " + order.OrderCode,
	}, clientIP)
	if err != nil {
		u.log.Error("build payment url failed",
			zap.String("order_code", order.OrderCode),
			zap.String("gateway", string(order.PaymentMethod)),
			zap.Error(err))
		return "", NewHTTPError(http.StatusBadGateway, "gateway unavailable")
	}
	return payURL, nil
}

// ConfirmManualPayment は銀行振込の入金を管理者が手動確認する。
// SUCCESSのPayment行を起こし、PAIDへ。PENDINGならCONFIRMEDまで進める。
func (u *PaymentUsecase) ConfirmManualPayment(ctx context.Context, orderID int64, adminID int64, reference string) (OrderOutput, error) {
	if adminID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" || len(reference) > 100 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid reference")
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
		if o.PaymentMethod != model.PaymentMethodBankTransfer {
			return NewHTTPError(http.StatusBadRequest, "not a bank transfer order")
		}
		if o.PaymentStatus == model.PaymentStatusPaid {
			return NewHTTPError(http.StatusConflict, "already paid")
		}
		if o.Status.IsTerminal() {
			return NewIllegalTransitionError(o.Status, o.Status)
		}

		now := time.Now()
		ref := reference
		if _, err := r.Payments().Create(ctx, model.Payment{
			OrderID:               orderID,
			GatewayTransactionRef: &ref,
			Amount:                o.TotalAmount,
			Status:                model.PaymentTxStatusSuccess,
			ProcessedAt:           now,
		}); err != nil {
			if err == repo.ErrDuplicate {
				return NewHTTPError(http.StatusConflict, "reference already used")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Orders().UpdatePaymentStatus(ctx, orderID, model.PaymentStatusPaid); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.PaymentStatus = model.PaymentStatusPaid

		prev := o.Status
		if o.Status == model.OrderStatusPending {
			if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusConfirmed); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			o.Status = model.OrderStatusConfirmed

			if err := appendOutboxEvent(ctx, r, model.EventOrderStatus, orderID, notify.OrderStatusChangedPayload{
				OrderID:    orderID,
				OrderCode:  o.OrderCode,
				BuyerID:    o.BuyerID,
				SellerID:   o.SellerID,
				PrevStatus: string(prev),
				NewStatus:  string(o.Status),
			}); err != nil {
				return err
			}
		}

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

		//入金確認は監査ログ必須
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionConfirmPayment,
			ResourceType: model.AuditResourcePayment,
			ResourceID:   orderID,
			BeforeJSON:   `{"payment_status":"PENDING"}`,
			AfterJSON:    `{"payment_status":"PAID","reference":"` + ref + `"}`,
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
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

// IngestGatewayCallback はIPN/Webhookを取り込む。
// 内部で何が起きてもエラーはログへ吸収する（ゲートウェイへは常に成功応答）。
// 戻り値はプロバイダ既定のAck。
func (u *PaymentUsecase) IngestGatewayCallback(ctx context.Context, gatewayName string, raw []byte) gateway.AckResponse {
	gw, err := u.gateways.Lookup(gatewayName)
	if err != nil {
		u.log.Warn("callback for unknown gateway", zap.String("gateway", gatewayName))
		metrics.GatewayCallbackTotal.WithLabelValues(gatewayName, "invalid").Inc()
		//プロバイダ形式が分からないので汎用の200を返す
		return gateway.AckResponse{Status: http.StatusOK}
	}
	ack := gw.Ack()

	res, err := gw.ParseCallback(raw)
	if err != nil {
		u.log.Error("gateway callback rejected",
			zap.String("gateway", gw.Name()), zap.Error(err))
		metrics.GatewayCallbackTotal.WithLabelValues(gw.Name(), "invalid").Inc()
		return ack
	}

	outcome := u.applyCallback(ctx, gw.Name(), res, raw)
	metrics.GatewayCallbackTotal.WithLabelValues(gw.Name(), outcome).Inc()
	return ack
}

// applyCallback は正規形のコールバックを注文へ反映し、結果ラベルを返す。
func (u *PaymentUsecase) applyCallback(ctx context.Context, gwName string, res gateway.CallbackResult, raw []byte) string {
	outcome := "error"

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//注文ロック（遷移との競合を直列化）
		o, err := r.Orders().FindByOrderCodeForUpdate(ctx, res.OrderCode)
		if err == repo.ErrNotFound {
			//見つからなくても成功応答（無駄な再送を止める）。状態は触らない。
			u.log.Warn("callback for unknown order",
				zap.String("gateway", gwName), zap.String("order_code", res.OrderCode))
			outcome = "unknown_order"
			return nil
		}
		if err != nil {
			return err
		}

		//重複コールバック：同じ取引参照のPayment行があれば何もしない
		if _, err := r.Payments().FindByGatewayRef(ctx, res.TransactionRef); err == nil {
			u.log.Info("duplicate gateway callback",
				zap.String("gateway", gwName),
				zap.String("order_code", res.OrderCode),
				zap.String("transaction_ref", res.TransactionRef))
			outcome = "duplicate"
			return nil
		} else if err != repo.ErrNotFound {
			return err
		}

		//すでに決済済みなら新しい結果は適用しない（SUCCESSは1行だけ）
		if o.PaymentStatus == model.PaymentStatusPaid {
			u.log.Warn("callback for already paid order",
				zap.String("gateway", gwName), zap.String("order_code", res.OrderCode))
			outcome = "duplicate"
			return nil
		}

		now := time.Now()
		gw := gwName
		ref := res.TransactionRef
		status := model.PaymentTxStatusFailed
		if res.Success {
			status = model.PaymentTxStatusSuccess
		}
		if _, err := r.Payments().Create(ctx, model.Payment{
			OrderID:               o.ID,
			Gateway:               &gw,
			GatewayTransactionRef: &ref,
			Amount:                o.TotalAmount,
			Status:                status,
			RawPayload:            string(raw),
			ProcessedAt:           now,
		}); err != nil {
			if err == repo.ErrDuplicate {
				//同時に同じ参照が入った。先勝ちで重複扱い。
				outcome = "duplicate"
				return nil
			}
			return err
		}

		if res.Success {
			if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, model.PaymentStatusPaid); err != nil {
				return err
			}
			//PENDINGならCONFIRMEDへ。CONFIRMED以降はそのまま。
			if o.Status == model.OrderStatusPending {
				if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusConfirmed); err != nil {
					return err
				}
				if err := appendOutboxEvent(ctx, r, model.EventOrderStatus, o.ID, notify.OrderStatusChangedPayload{
					OrderID:    o.ID,
					OrderCode:  o.OrderCode,
					BuyerID:    o.BuyerID,
					SellerID:   o.SellerID,
					PrevStatus: string(model.OrderStatusPending),
					NewStatus:  string(model.OrderStatusConfirmed),
				}); err != nil {
					return err
				}
			}
			outcome = "success"
		} else {
			//失敗してもステータスは変えない（買い手が再試行できる）
			if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, model.PaymentStatusFailed); err != nil {
				return err
			}
			outcome = "failed"
		}

		return appendOutboxEvent(ctx, r, model.EventPaymentResult, o.ID, notify.PaymentResultPayload{
			OrderID:   o.ID,
			OrderCode: o.OrderCode,
			BuyerID:   o.BuyerID,
			SellerID:  o.SellerID,
			Success:   res.Success,
			Amount:    o.TotalAmount,
			Method:    string(o.PaymentMethod),
		})
	})

	if err != nil {
		u.log.Error("gateway callback processing failed",
			zap.String("gateway", gwName),
			zap.String("order_code", res.OrderCode),
			zap.Error(err))
		return "error"
	}
	return outcome
}
