package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
)

// usecase層のエラーはHTTPステータスを持って上へ返す
type HTTPError struct {
	Status  int         `json:"-"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func NewHTTPErrorWithDetails(status int, message string, details interface{}) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Details: details,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 不正な状態遷移。現在と要求のステータスを必ず載せる。
func NewIllegalTransitionError(from, to model.OrderStatus) error {
	return NewHTTPError(http.StatusConflict,
		fmt.Sprintf("illegal status transition: %s -> %s", from, to))
}

// 在庫不足。現在の在庫数を載せて呼び出し側が対処できるようにする。
type InsufficientStockDetail struct {
	ProductID int64 `json:"product_id"`
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
}

func NewInsufficientStockError(d InsufficientStockDetail) error {
	return NewHTTPErrorWithDetails(http.StatusConflict, "insufficient stock", d)
}
