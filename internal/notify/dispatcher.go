package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/domain/model"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/metrics"
	repo "github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"

	"go.uber.org/zap"
)

// Publisher はディスパッチャが使う送信口（テストで差し替える）
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Dispatcher は未配信のアウトボックス行をポーリングしてKafkaへ流す。
// at-least-once：MarkPublishedの前に落ちれば同じイベントがもう一度出る。
type Dispatcher struct {
	outbox   repo.OutboxRepository
	producer Publisher
	log      *zap.Logger

	interval  time.Duration
	batchSize int
	done      chan struct{}
}

func NewDispatcher(outbox repo.OutboxRepository, producer Publisher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		outbox:    outbox,
		producer:  producer,
		log:       log,
		interval:  2 * time.Second,
		batchSize: 100,
		done:      make(chan struct{}),
	}
}

// Start はctxが閉じるまでポーリングし続ける。呼び出し側はgoで起動する。
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)

	t := time.NewTicker(d.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := d.drain(ctx); err != nil {
				d.log.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// Wait はStartのループが抜けるまでブロックする（シャットダウン用）
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) drain(ctx context.Context) error {
	events, err := d.outbox.ListUnpublished(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := make([]int64, 0, len(events))
	for _, e := range events {
		if err := d.publishOne(ctx, e); err != nil {
			//途中で失敗したらそこで打ち切る（ID昇順なので順序が崩れない）
			d.log.Error("publish outbox event failed",
				zap.Int64("outbox_id", e.ID),
				zap.String("event_type", string(e.EventType)),
				zap.Error(err))
			break
		}
		published = append(published, e.ID)
	}

	if len(published) == 0 {
		return nil
	}
	if err := d.outbox.MarkPublished(ctx, published); err != nil {
		//マーク失敗は次回の再送で上書きされる（消費側がEventIDで弾く）
		return err
	}
	metrics.OutboxPublishedTotal.Add(float64(len(published)))
	return nil
}

func (d *Dispatcher) publishOne(ctx context.Context, e model.OutboxEvent) error {
	env := Envelope{
		EventID:    e.EventID,
		EventType:  string(e.EventType),
		OccurredAt: e.CreatedAt,
		Producer:   ProducerName,
		Payload:    json.RawMessage(e.Payload),
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatInt(e.OrderID, 10))
	return d.producer.Publish(ctx, key, value)
}
