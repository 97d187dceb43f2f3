package usecase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"
)

// CartUsecase は /cart の業務ロジック。
// カート明細は (buyer_id, product_id) で一意。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	SellerID  int64  `json:"seller_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// 検証で発生した調整の記録
type CartAdjustment struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"` // QUANTITY_REDUCED / OUT_OF_STOCK / UNAVAILABLE
	NewQuantity int64  `json:"new_quantity"`
}

type CartValidationResult struct {
	Valid       bool             `json:"valid"`
	Messages    []string         `json:"messages"`
	Adjustments []CartAdjustment `json:"adjustments"`
}

const (
	AdjustReasonQuantityReduced = "QUANTITY_REDUCED"
	AdjustReasonOutOfStock      = "OUT_OF_STOCK"
	AdjustReasonUnavailable     = "UNAVAILABLE"
)

// GetCart はカート取得（空なら空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, buyerID int64) (CartResponse, error) {
	if buyerID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.CartItems().ListByBuyerID(ctx, buyerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = buildCartResponse(ctx, r, items)
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// AddToCart はカートに追加（同一商品は数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, buyerID int64, in AddCartInput) (CartResponse, error) {
	if buyerID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 商品チェック（公開のみ）
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsPurchasable() {
			return NewHTTPError(http.StatusBadRequest, "invalid product")
		}

		// 既存数量＋追加分が在庫を超えないか
		items, err := r.CartItems().ListByBuyerID(ctx, buyerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		var existingQty int64 = 0
		for _, it := range items {
			if it.ProductID == in.ProductID {
				existingQty = it.Quantity
				break
			}
		}
		if existingQty+in.Quantity > p.Stock {
			return NewInsufficientStockError(InsufficientStockDetail{
				ProductID: p.ID,
				Requested: existingQty + in.Quantity,
				Available: p.Stock,
			})
		}

		if err := r.CartItems().UpsertByBuyerAndProduct(ctx, buyerID, in.ProductID, in.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		after, err := r.CartItems().ListByBuyerID(ctx, buyerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = buildCartResponse(ctx, r, after)
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 数量変更（所有チェック＋在庫チェック）。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, buyerID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if buyerID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByID(ctx, cartItemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		//他人の明細は「存在しない扱い」にする
		if item.BuyerID != buyerID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		p, err := r.Products().FindByID(ctx, item.ProductID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsPurchasable() {
			return NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		if in.Quantity > p.Stock {
			return NewInsufficientStockError(InsufficientStockDetail{
				ProductID: p.ID,
				Requested: in.Quantity,
				Available: p.Stock,
			})
		}

		if err := r.CartItems().UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		after, err := r.CartItems().ListByBuyerID(ctx, buyerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = buildCartResponse(ctx, r, after)
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, buyerID int64, cartItemID int64) (CartResponse, error) {
	if buyerID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByID(ctx, cartItemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if item.BuyerID != buyerID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		after, err := r.CartItems().ListByBuyerID(ctx, buyerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = buildCartResponse(ctx, r, after)
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// ValidateCart はチェックアウト前の事前検証。
// カタログと突き合わせて数量を自動調整し、調整内容を返す。
// チェックアウトは同じ調整処理を予約と同じトランザクション内でもう一度実行する。
func (u *CartUsecase) ValidateCart(ctx context.Context, buyerID int64) (CartValidationResult, error) {
	if buyerID <= 0 {
		return CartValidationResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var result CartValidationResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		res, _, _, err := reconcileCart(ctx, r, buyerID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return CartValidationResult{}, err
	}
	return result, nil
}

// reconcileCart はカートを現在のカタログ状態へ揃える。
//   - 商品が消えた／非公開     → 明細削除（UNAVAILABLE）
//   - 在庫ゼロ                → 明細削除（OUT_OF_STOCK）
//   - 在庫が要求数より少ない   → 数量を在庫まで下げる（QUANTITY_REDUCED。黙って消さない）
//
// 戻り値は検証結果・調整後に残った明細・参照した商品。
func reconcileCart(ctx context.Context, r repo.TxRepos, buyerID int64) (CartValidationResult, []model.CartItem, map[int64]model.Product, error) {
	items, err := r.CartItems().ListByBuyerID(ctx, buyerID)
	if err != nil {
		return CartValidationResult{}, nil, nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	result := CartValidationResult{
		Valid:       true,
		Messages:    []string{},
		Adjustments: []CartAdjustment{},
	}
	remaining := make([]model.CartItem, 0, len(items))
	products := make(map[int64]model.Product, len(items))

	for _, it := range items {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if err != nil && err != repo.ErrNotFound {
			return CartValidationResult{}, nil, nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err == repo.ErrNotFound || !p.IsPurchasable() {
			if derr := r.CartItems().DeleteByID(ctx, it.ID); derr != nil && derr != repo.ErrNotFound {
				return CartValidationResult{}, nil, nil, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			result.Valid = false
			result.Adjustments = append(result.Adjustments, CartAdjustment{
				ProductID:   it.ProductID,
				ProductName: p.Name,
				Reason:      AdjustReasonUnavailable,
				NewQuantity: 0,
			})
			result.Messages = append(result.Messages,
				fmt.Sprintf("「%s」は販売終了のためカートから外しました", p.Name))
			continue
		}

		if p.Stock <= 0 {
			if derr := r.CartItems().DeleteByID(ctx, it.ID); derr != nil && derr != repo.ErrNotFound {
				return CartValidationResult{}, nil, nil, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			result.Valid = false
			result.Adjustments = append(result.Adjustments, CartAdjustment{
				ProductID:   it.ProductID,
				ProductName: p.Name,
				Reason:      AdjustReasonOutOfStock,
				NewQuantity: 0,
			})
			result.Messages = append(result.Messages,
				fmt.Sprintf("「%s」は在庫切れのためカートから外しました", p.Name))
			continue
		}

		if it.Quantity > p.Stock {
			if uerr := r.CartItems().UpdateQuantity(ctx, it.ID, p.Stock); uerr != nil {
				return CartValidationResult{}, nil, nil, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			result.Valid = false
			result.Adjustments = append(result.Adjustments, CartAdjustment{
				ProductID:   it.ProductID,
				ProductName: p.Name,
				Reason:      AdjustReasonQuantityReduced,
				NewQuantity: p.Stock,
			})
			result.Messages = append(result.Messages,
				fmt.Sprintf("「%s」の数量を在庫数%dに合わせました", p.Name, p.Stock))
			it.Quantity = p.Stock
		}

		remaining = append(remaining, it)
		products[p.ID] = p
	}

	return result, remaining, products, nil
}

func buildCartResponse(ctx context.Context, r repo.TxRepos, items []model.CartItem) CartResponse {
	respItems := make([]CartItemResponse, 0, len(items))
	var total int64 = 0

	for _, it := range items {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}
		if !p.IsPurchasable() {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			SellerID:  p.SellerID,
			Name:      p.Name,
			Unit:      p.Unit,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
		total += p.Price * it.Quantity
	}

	return CartResponse{Items: respItems, Total: total}
}
