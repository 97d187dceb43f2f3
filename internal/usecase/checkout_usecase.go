package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/config"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/metrics"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/notify"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"github.com/google/uuid"
)

// CheckoutUsecase は検証済みカートを販売者ごとの注文へ変換する。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	cfg       config.Config
}

func NewCheckoutUsecase(tx repo.TransactionManager, addresses repo.AddressRepository, cfg config.Config) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, addresses: addresses, cfg: cfg}
}

type CheckoutInput struct {
	AddressID     int64
	PaymentMethod model.PaymentMethod
}

// 銀行振込の案内（静的な口座情報＋注文コード由来の振込参照）
type BankTransferInfo struct {
	OrderCode     string `json:"order_code"`
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
	TransferRef   string `json:"transfer_ref"`
}

// 予約に失敗した販売者グループの報告
type CheckoutGroupFailure struct {
	SellerID int64                    `json:"seller_id"`
	Reason   string                   `json:"reason"`
	Detail   *InsufficientStockDetail `json:"detail,omitempty"`
}

// 販売者ごとに独立して成否が決まる。Ordersは成功分だけ。
type CheckoutOutput struct {
	Orders        []OrderOutput          `json:"orders"`
	Failures      []CheckoutGroupFailure `json:"failures,omitempty"`
	BankTransfers []BankTransferInfo     `json:"bank_transfers,omitempty"`
}

func validPaymentMethod(m model.PaymentMethod) bool {
	switch m {
	case model.PaymentMethodCOD, model.PaymentMethodBankTransfer,
		model.PaymentMethodVNPay, model.PaymentMethodMoMo:
		return true
	}
	return false
}

// Checkout はカートを販売者で分割し、グループ単位で
// 在庫予約＋注文作成＋カート消費を1トランザクションで行う。
// あるグループの失敗は他グループに影響しない（部分成功）。
func (u *CheckoutUsecase) Checkout(ctx context.Context, buyerID int64, in CheckoutInput) (CheckoutOutput, error) {
	if buyerID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	if !validPaymentMethod(in.PaymentMethod) {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	//住所の存在確認＋所有チェック。スナップショット元として読むだけ。
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err == repo.ErrNotFound {
		return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != buyerID {
		return CheckoutOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	//検証を再実行。調整が出たらチェックアウト全体を中止して買い手に再確認させる。
	var remaining []model.CartItem
	var products map[int64]model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		res, items, prods, err := reconcileCart(ctx, r, buyerID)
		if err != nil {
			return err
		}
		if !res.Valid {
			return NewHTTPErrorWithDetails(http.StatusConflict, "cart stale", res)
		}
		remaining = items
		products = prods
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}
	if len(remaining) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty or unfulfillable")
	}

	groups := groupBySeller(remaining, products)
	if len(groups) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty or unfulfillable")
	}

	out := CheckoutOutput{Orders: []OrderOutput{}}

	for _, g := range groups {
		order, fail, err := u.checkoutGroup(ctx, buyerID, addr, in.PaymentMethod, g)
		if err != nil {
			return CheckoutOutput{}, err
		}
		if fail != nil {
			out.Failures = append(out.Failures, *fail)
			continue
		}
		out.Orders = append(out.Orders, *order)
		if in.PaymentMethod == model.PaymentMethodBankTransfer {
			out.BankTransfers = append(out.BankTransfers, u.bankTransferInfo(order.OrderCode, order.TotalAmount))
		}
	}

	//全グループ失敗なら何も作られていない
	if len(out.Orders) == 0 {
		metrics.CheckoutTotal.WithLabelValues("failed").Inc()
		return CheckoutOutput{}, NewHTTPErrorWithDetails(
			http.StatusBadRequest, "cart empty or unfulfillable", out.Failures)
	}

	if len(out.Failures) > 0 {
		metrics.CheckoutTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.CheckoutTotal.WithLabelValues("success").Inc()
	}
	return out, nil
}

type sellerGroup struct {
	sellerID int64
	items    []model.CartItem
}

// 販売者で分割。順序を安定させるためsellerID昇順。
func groupBySeller(items []model.CartItem, products map[int64]model.Product) []sellerGroup {
	bySeller := map[int64][]model.CartItem{}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		bySeller[p.SellerID] = append(bySeller[p.SellerID], it)
	}

	sellerIDs := make([]int64, 0, len(bySeller))
	for id := range bySeller {
		sellerIDs = append(sellerIDs, id)
	}
	sort.Slice(sellerIDs, func(i, j int) bool { return sellerIDs[i] < sellerIDs[j] })

	groups := make([]sellerGroup, 0, len(sellerIDs))
	for _, id := range sellerIDs {
		groups = append(groups, sellerGroup{sellerID: id, items: bySeller[id]})
	}
	return groups
}

// 1販売者グループ＝1トランザクション。
// 予約・注文・明細・カート消費・通知イベントが全部入るか全部入らないか。
// 予約失敗はロールバックで予約済み分も戻る。
func (u *CheckoutUsecase) checkoutGroup(
	ctx context.Context,
	buyerID int64,
	addr model.Address,
	method model.PaymentMethod,
	g sellerGroup,
) (*OrderOutput, *CheckoutGroupFailure, error) {
	var out OrderOutput
	var fail *CheckoutGroupFailure

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderItems := make([]model.OrderItem, 0, len(g.items))
		productIDs := make([]int64, 0, len(g.items))
		var subtotal int64 = 0

		for _, ci := range g.items {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound || (err == nil && !p.IsPurchasable()) {
				fail = &CheckoutGroupFailure{SellerID: g.sellerID, Reason: AdjustReasonUnavailable}
				return errGroupAborted
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//在庫予約（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				fail = &CheckoutGroupFailure{
					SellerID: g.sellerID,
					Reason:   "INSUFFICIENT_STOCK",
					Detail: &InsufficientStockDetail{
						ProductID: ci.ProductID,
						Requested: ci.Quantity,
						Available: p.Stock,
					},
				}
				return errGroupAborted
			}

			//価格・商品名のスナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:    p.ID,
				ProductName:  p.Name,
				Unit:         p.Unit,
				PricePerUnit: p.Price,
				Quantity:     ci.Quantity,
				LineTotal:    p.Price * ci.Quantity,
			})
			productIDs = append(productIDs, ci.ProductID)
			subtotal += p.Price * ci.Quantity
		}

		shippingFee := u.cfg.ShippingFlatFee
		if u.cfg.FreeShipThreshold > 0 && subtotal >= u.cfg.FreeShipThreshold {
			shippingFee = 0
		}
		var discount int64 = 0

		now := time.Now()
		order := model.Order{
			OrderCode:     newOrderCode(now),
			BuyerID:       buyerID,
			SellerID:      g.sellerID,
			Status:        model.OrderStatusPending,
			PaymentMethod: method,
			PaymentStatus: model.PaymentStatusPending,
			Subtotal:      subtotal,
			ShippingFee:   shippingFee,
			Discount:      discount,
			TotalAmount:   subtotal + shippingFee - discount,
			ShipName:      addr.Name,
			ShipPhone:     addr.Phone,
			ShipLine:      addr.Line,
			ShipWard:      addr.Ward,
			ShipProvince:  addr.Province,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//消費した明細だけ消す（他販売者の分は残す）
		if err := r.CartItems().DeleteByBuyerAndProducts(ctx, buyerID, productIDs); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := appendOutboxEvent(ctx, r, model.EventOrderCreated, orderID, notify.OrderCreatedPayload{
			OrderID:       orderID,
			OrderCode:     order.OrderCode,
			BuyerID:       buyerID,
			SellerID:      g.sellerID,
			PaymentMethod: string(method),
			TotalAmount:   order.TotalAmount,
		}); err != nil {
			return err
		}

		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err == errGroupAborted {
		return nil, fail, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &out, nil, nil
}

// グループ中止用の番兵。Txをロールバックさせて予約を戻す。
var errGroupAborted = fmt.Errorf("checkout group aborted")

func (u *CheckoutUsecase) bankTransferInfo(orderCode string, amount int64) BankTransferInfo {
	return BankTransferInfo{
		OrderCode:     orderCode,
		BankName:      u.cfg.BankName,
		AccountName:   u.cfg.BankAccountName,
		AccountNumber: u.cfg.BankAccountNumber,
		Amount:        amount,
		TransferRef:   transferRefFor(orderCode),
	}
}

// 振込参照は注文コードから導出（照合に使う）
func transferRefFor(orderCode string) string {
	return "AGRITRADE " + orderCode
}

func newOrderCode(now time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("AGT-%s-%s", now.Format("20060102"), short)
}
