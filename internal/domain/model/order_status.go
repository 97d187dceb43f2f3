package model

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// 終端（DELIVERED / CANCELLED）からは遷移できない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// キャンセル可能な状態（SHIPPING以降は不可）
func (s OrderStatus) IsCancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

// ハッピーパス上の順序。CANCELLED は -1。
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipping:   3,
	OrderStatusDelivered:  4,
	OrderStatusCancelled:  -1,
}

func IsValidStatus(s OrderStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// 汎用ステータス更新で誰がどの遷移を踏めるかの表。
// CANCELLED はここでは扱わない（専用のキャンセル操作のみ。管理者でも不可）。
//   - SELLER: 自分の注文をハッピーパス沿いに前へ（1段以上）
//   - ADMIN:  非終端どうしなら前後どちらでも
//   - BUYER:  汎用更新は不可
func CanTransition(role Role, from, to OrderStatus) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return false
	}
	if from == to {
		return false
	}

	switch role {
	case RoleSeller:
		return statusRank[to] > statusRank[from]
	case RoleAdmin:
		return true
	default:
		return false
	}
}
