package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// チェックアウト結果（result: created / partial / rejected）
var CheckoutTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agritrade_checkout_total",
		Help: "Checkout attempts by result.",
	},
	[]string{"result"},
)

// ゲートウェイコールバック（outcome: success / failed / duplicate / unknown_order / invalid）
var GatewayCallbackTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agritrade_gateway_callback_total",
		Help: "Gateway payment callbacks by gateway and outcome.",
	},
	[]string{"gateway", "outcome"},
)

// 注文ステータス遷移
var OrderTransitionTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agritrade_order_transition_total",
		Help: "Successful order status transitions.",
	},
	[]string{"to"},
)

// アウトボックス配信
var OutboxPublishedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "agritrade_outbox_published_total",
		Help: "Outbox events delivered to the broker.",
	},
)
