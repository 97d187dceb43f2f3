package repository

import "context"

// 在庫台帳。productsのstock列が当コアの書き込み先。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算（1回の条件付きUPDATEで原子的に行う）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル時。予約した量を呼び出し側が渡す）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error
}
