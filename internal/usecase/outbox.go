package usecase

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"github.com/google/uuid"
)

// 注文を変更したトランザクションと同じTxの中でアウトボックス行を書く。
// 配信はディスパッチャに任せる（fire-and-forget）。
func appendOutboxEvent(ctx context.Context, r repo.TxRepos, eventType model.OutboxEventType, orderID int64, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "event marshal error")
	}

	e := model.OutboxEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		OrderID:   orderID,
		Payload:   string(raw),
	}
	if err := r.Outbox().Create(ctx, e); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
