package fulfillment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/shoplite/shop-backend/internal/kafka"
	"github.com/shoplite/shop-backend/internal/orders"
)

type fakeStock struct {
	levels map[string]int
}

func (f *fakeStock) StockLevels(ctx context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int)
	for _, id := range ids {
		if n, ok := f.levels[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []orders.Envelope
}

func (c *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	c.events = append(c.events, env)
}

func placedMessage(t *testing.T, items ...orders.ItemQty) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      "ev-1",
		EventType:    orders.EventOrderPlaced,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID: "o-1", UserID: "u-1", Items: items, TotalCents: 1000,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderPlaced_AlertsBelowThreshold(t *testing.T) {
	pub := &capturePublisher{}
	svc := &Service{
		Stock:       &fakeStock{levels: map[string]int{"p1": 2, "p2": 50}},
		Alerts:      pub,
		ServiceName: "test-fulfillment",
		Threshold:   5,
	}

	err := svc.HandleOrderPlaced(context.Background(), placedMessage(t,
		orders.ItemQty{ProductID: "p1", Qty: 3},
		orders.ItemQty{ProductID: "p2", Qty: 1},
	))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, orders.EventStockLow, ev.EventType)

	p, err := kafkax.UnwrapPayload[orders.StockLowPayload](ev.Payload)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ProductID)
	assert.Equal(t, 2, p.Remaining)
	assert.Equal(t, 5, p.Threshold)
}

func TestHandleOrderPlaced_NoAlertAboveThreshold(t *testing.T) {
	pub := &capturePublisher{}
	svc := &Service{
		Stock:     &fakeStock{levels: map[string]int{"p1": 100}},
		Alerts:    pub,
		Threshold: 5,
	}

	err := svc.HandleOrderPlaced(context.Background(), placedMessage(t,
		orders.ItemQty{ProductID: "p1", Qty: 1}))
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestHandleOrderPlaced_IgnoresOtherEventTypes(t *testing.T) {
	pub := &capturePublisher{}
	svc := &Service{
		Stock:     &fakeStock{levels: map[string]int{}},
		Alerts:    pub,
		Threshold: 5,
	}

	env := orders.Envelope{EventID: "ev-2", EventType: orders.EventOrderStatusChanged, Payload: []byte(`{}`)}
	err := svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestHandleOrderPlaced_RejectsGarbage(t *testing.T) {
	svc := &Service{Stock: &fakeStock{}, Threshold: 5}
	err := svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
