// Package fulfillment consumes order events downstream of the API. It
// deduplicates deliveries and raises low-stock alerts so restocking can
// start before a product sells out.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shoplite/shop-backend/internal/kafka"
	"github.com/shoplite/shop-backend/internal/orders"
	"github.com/shoplite/shop-backend/internal/redisx"
)

// StockChecker reports remaining stock per product id.
type StockChecker interface {
	StockLevels(ctx context.Context, ids []string) (map[string]int, error)
}

// Publisher is the alert stream seam; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Stock       StockChecker
	Redis       *redis.Client // optional; nil disables dedup and alert markers
	Alerts      Publisher
	ServiceName string
	Threshold   int
}

// HandleOrderPlaced is installed as the consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "fulfillment", env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ProductID)
	}
	levels, err := s.Stock.StockLevels(ctx, ids)
	if err != nil {
		return err
	}

	for _, id := range ids {
		remaining, ok := levels[id]
		if !ok || remaining >= s.Threshold {
			continue
		}
		if s.Redis != nil {
			// One alert per window, not one per order.
			akey := fmt.Sprintf(redisx.KeyLowStock, id)
			set, err := s.Redis.SetNX(ctx, akey, "1", redisx.TTLLowStock).Result()
			if err == nil && !set {
				continue
			}
		}
		s.alertLowStock(id, remaining, env.TraceID)
	}
	return nil
}

func (s *Service) alertLowStock(productID string, remaining int, trace string) {
	slog.Warn("low stock", "product", productID, "remaining", remaining, "threshold", s.Threshold)
	if s.Alerts == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: productID,
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID: productID, Remaining: remaining, Threshold: s.Threshold,
		}),
	}
	s.Alerts.Publish([]byte(productID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
