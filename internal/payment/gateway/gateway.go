package gateway

import (
	"fmt"
	"strings"
)

// プロバイダ固有のペイロードをここで正規形に直す。
// コアが見るのはこの3つだけ。
type CallbackResult struct {
	OrderCode      string
	TransactionRef string
	Success        bool
}

// リダイレクトURL構築に必要な注文情報
type PaymentOrder struct {
	OrderCode string
	Amount    int64
	OrderInfo string
}

// ゲートウェイへ返す「害のない成功応答」。
// リトライ契約を満たすため、内部の成否に関わらずこれを返す。
type AckResponse struct {
	Status      int
	ContentType string
	Body        string
}

type Gateway interface {
	Name() string

	// 署名付きリダイレクトURLを作る
	BuildPaymentURL(o PaymentOrder, clientIP string) (string, error)

	// IPN/コールバックの生ペイロードを検証して正規形へ。
	// VNPayはクエリ文字列、MoMoはJSONボディを渡す。
	ParseCallback(raw []byte) (CallbackResult, error)

	// プロバイダが期待する成功応答
	Ack() AckResponse
}

// 名前→アダプタの解決
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	m := make(map[string]Gateway, len(gws))
	for _, g := range gws {
		m[strings.ToUpper(g.Name())] = g
	}
	return &Registry{gateways: m}
}

func (r *Registry) Lookup(name string) (Gateway, error) {
	g, ok := r.gateways[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown gateway: %s", name)
	}
	return g, nil
}
