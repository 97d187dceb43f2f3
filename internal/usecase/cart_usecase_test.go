package usecase

import (
	"context"
	"testing"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCartTestEnv() (*TxManagerMock, *CartItemRepoMock, *ProductRepoMock) {
	tx := new(TxManagerMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)

	tx.Repos = &TxReposMock{
		cartItems: cartItems,
		products:  products,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	return tx, cartItems, products
}

func TestCartUsecase_AddToCart_CapsAtStock(t *testing.T) {
	tx, cartItems, products := newCartTestEnv()
	uc := NewCartUsecase(tx)

	products.On("FindByID", mock.Anything, int64(100)).Return(publishedProduct(100, 2, 50000, 5), nil)

	//既存3＋追加3 > 在庫5
	cartItems.On("ListByBuyerID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, BuyerID: 1, ProductID: 100, Quantity: 3},
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{ProductID: 100, Quantity: 3})
	assertErrContains(t, err, "insufficient stock")

	he, _ := AsHTTPError(err)
	d, ok := he.Details.(InsufficientStockDetail)
	assert.True(t, ok)
	assert.Equal(t, int64(6), d.Requested)
	assert.Equal(t, int64(5), d.Available)

	cartItems.AssertNotCalled(t, "UpsertByBuyerAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_AddToCart_UnlistedProduct(t *testing.T) {
	tx, _, products := newCartTestEnv()
	uc := NewCartUsecase(tx)

	p := publishedProduct(100, 2, 50000, 5)
	p.ListingStatus = model.ListingStatusUnlisted
	products.On("FindByID", mock.Anything, int64(100)).Return(p, nil)

	_, err := uc.AddToCart(context.Background(), 1, AddCartInput{ProductID: 100, Quantity: 1})
	assertErrContains(t, err, "invalid product")
}

func TestCartUsecase_UpdateCartItem_OthersItemIsNotFound(t *testing.T) {
	tx, cartItems, _ := newCartTestEnv()
	uc := NewCartUsecase(tx)

	//明細は買い手99のもの
	cartItems.On("FindByID", mock.Anything, int64(5)).Return(model.CartItem{
		ID: 5, BuyerID: 99, ProductID: 100, Quantity: 1,
	}, nil)

	_, err := uc.UpdateCartItem(context.Background(), 1, 5, UpdateCartItemInput{Quantity: 2})
	assertErrContains(t, err, "not found")
}

func TestCartUsecase_ValidateCart_NoAdjustments(t *testing.T) {
	tx, cartItems, products := newCartTestEnv()
	uc := NewCartUsecase(tx)

	cartItems.On("ListByBuyerID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, BuyerID: 1, ProductID: 100, Quantity: 2},
	}, nil)
	products.On("FindByID", mock.Anything, int64(100)).Return(publishedProduct(100, 2, 50000, 5), nil)

	res, err := uc.ValidateCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Adjustments)
	assert.Empty(t, res.Messages)
}

func TestCartUsecase_ValidateCart_RemovesUnavailableAndOutOfStock(t *testing.T) {
	tx, cartItems, products := newCartTestEnv()
	uc := NewCartUsecase(tx)

	cartItems.On("ListByBuyerID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, BuyerID: 1, ProductID: 100, Quantity: 2}, //消えた商品
		{ID: 2, BuyerID: 1, ProductID: 101, Quantity: 1}, //在庫ゼロ
		{ID: 3, BuyerID: 1, ProductID: 102, Quantity: 2}, //問題なし
	}, nil)

	products.On("FindByID", mock.Anything, int64(100)).Return(model.Product{}, repo.ErrNotFound)
	products.On("FindByID", mock.Anything, int64(101)).Return(publishedProduct(101, 2, 20000, 0), nil)
	products.On("FindByID", mock.Anything, int64(102)).Return(publishedProduct(102, 2, 15000, 9), nil)

	cartItems.On("DeleteByID", mock.Anything, int64(1)).Return(nil)
	cartItems.On("DeleteByID", mock.Anything, int64(2)).Return(nil)

	res, err := uc.ValidateCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 2, len(res.Adjustments))
	assert.Equal(t, AdjustReasonUnavailable, res.Adjustments[0].Reason)
	assert.Equal(t, AdjustReasonOutOfStock, res.Adjustments[1].Reason)
	assert.Equal(t, 2, len(res.Messages))

	cartItems.AssertExpectations(t)
}

func TestCartUsecase_ValidateCart_ReducesQuantityInsteadOfDropping(t *testing.T) {
	tx, cartItems, products := newCartTestEnv()
	uc := NewCartUsecase(tx)

	cartItems.On("ListByBuyerID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, BuyerID: 1, ProductID: 100, Quantity: 8},
	}, nil)
	products.On("FindByID", mock.Anything, int64(100)).Return(publishedProduct(100, 2, 50000, 3), nil)
	cartItems.On("UpdateQuantity", mock.Anything, int64(1), int64(3)).Return(nil)

	res, err := uc.ValidateCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 1, len(res.Adjustments))
	assert.Equal(t, AdjustReasonQuantityReduced, res.Adjustments[0].Reason)
	assert.Equal(t, int64(3), res.Adjustments[0].NewQuantity)

	//黙って消さない
	cartItems.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestCartUsecase_GetCart_ComputesTotal(t *testing.T) {
	tx, cartItems, products := newCartTestEnv()
	uc := NewCartUsecase(tx)

	cartItems.On("ListByBuyerID", mock.Anything, int64(1)).Return([]model.CartItem{
		{ID: 1, BuyerID: 1, ProductID: 100, Quantity: 2},
		{ID: 2, BuyerID: 1, ProductID: 101, Quantity: 3},
	}, nil)
	products.On("FindByID", mock.Anything, int64(100)).Return(publishedProduct(100, 2, 50000, 5), nil)
	products.On("FindByID", mock.Anything, int64(101)).Return(publishedProduct(101, 3, 20000, 5), nil)

	out, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Items))
	assert.Equal(t, int64(2*50000+3*20000), out.Total)
}
