package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// 条件付きUPDATEを模した在庫スタブ（mutexで直列化）
type stockLedgerStub struct {
	mu    sync.Mutex
	stock map[int64]int64
}

func (s *stockLedgerStub) DecreaseStockIfEnough(_ context.Context, productID int64, qty int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stock[productID] < qty {
		return false, nil
	}
	s.stock[productID] -= qty
	return true, nil
}

func (s *stockLedgerStub) IncreaseStock(_ context.Context, productID int64, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] += qty
	return nil
}

// 最後の1個を2人が同時に買う。予約が通るのは必ず1人だけ。
func TestCheckout_LastUnitRace(t *testing.T) {
	tx := new(TxManagerMock)
	addresses := new(AddressRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)
	outbox := new(OutboxRepoMock)
	ledger := &stockLedgerStub{stock: map[int64]int64{100: 1}}

	tx.Repos = &TxReposMock{
		orders:     orders,
		orderItems: orderItems,
		cartItems:  cartItems,
		products:   products,
		inventory:  ledger,
		outbox:     outbox,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	uc := NewCheckoutUsecase(tx, addresses, testConfig())

	//買い手1と買い手2が同じ商品の最後の1個をカートに入れている
	addresses.On("FindByID", mock.Anything, int64(10)).Return(testAddress(1), nil)
	addresses.On("FindByID", mock.Anything, int64(11)).Return(testAddress(2), nil)
	cartItems.On("ListByBuyerID", mock.Anything, mock.Anything).Return([]model.CartItem{
		{ID: 1, BuyerID: 1, ProductID: 100, Quantity: 1},
	}, nil)
	products.On("FindByID", mock.Anything, int64(100)).Return(publishedProduct(100, 2, 50000, 1), nil)

	orders.On("Create", mock.Anything, mock.Anything).Return(int64(70), nil)
	orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cartItems.On("DeleteByBuyerAndProducts", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	type result struct {
		out CheckoutOutput
		err error
	}
	results := make(chan result, 2)

	var wg sync.WaitGroup
	for _, addrID := range []int64{10, 11} {
		wg.Add(1)
		go func(addrID int64) {
			defer wg.Done()
			buyerID := addrID - 9 //10→1, 11→2

			//住所所有チェックを通すため買い手ごとの住所を使う
			out, err := uc.Checkout(context.Background(), buyerID, CheckoutInput{
				AddressID: addrID, PaymentMethod: model.PaymentMethodCOD,
			})
			results <- result{out: out, err: err}
		}(addrID)
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for r := range results {
		if r.err == nil {
			succeeded++
			assert.Equal(t, 1, len(r.out.Orders))
		} else {
			failed++
			assertErrContains(t, r.err, "cart empty or unfulfillable")
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(0), ledger.stock[100])
}
