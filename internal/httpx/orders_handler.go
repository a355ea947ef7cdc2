package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shoplite/shop-backend/internal/auth"
	kafkax "github.com/shoplite/shop-backend/internal/kafka"
	"github.com/shoplite/shop-backend/internal/orders"
	"github.com/shoplite/shop-backend/internal/payments"
	"github.com/shoplite/shop-backend/internal/redisx"
)

// OrderStore is what the handlers need from the order repository.
type OrderStore interface {
	PlaceOrder(ctx context.Context, in orders.NewOrder) (orders.Order, error)
	AdvanceStatus(ctx context.Context, orderID string) (from, to orders.Status, deliveredAt *time.Time, err error)
	AttachPaymentIntent(ctx context.Context, orderID, intentID string) error
	Get(ctx context.Context, orderID string) (orders.Order, error)
	ListAll(ctx context.Context) ([]orders.Order, error)
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

// IntentCreator is the payment gateway seam.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int64) (payments.Intent, error)
}

// Publisher is the event stream seam; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Store     OrderStore
	Intents   IntentCreator
	PubPlaced Publisher // order.placed
	PubStatus Publisher // order.status.changed
	Redis     *redis.Client // optional; nil disables the detail cache
	Service   string
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/api/v1/order/payment", h.createPaymentIntent)
	r.Post("/api/v1/order/new", h.placeOrder)
	r.With(auth.RequireAdmin).Get("/api/v1/order/admin", h.listAllOrders)
	r.Get("/api/v1/order/my", h.listMyOrders)
	r.Get("/api/v1/order/single/{id}", h.getOrder)
	r.With(auth.RequireAdmin).Put("/api/v1/order/single/{id}", h.advanceStatus)
}

type placeOrderReq struct {
	ShippingInfo    json.RawMessage    `json:"shippingInfo"`
	OrderItems      []orders.ItemInput `json:"orderItems"`
	PaymentMethod   string             `json:"paymentMethod"`
	PaymentInfo     json.RawMessage    `json:"paymentInfo"`
	ItemsPrice      float64            `json:"itemsPrice"`
	TaxPrice        float64            `json:"taxPrice"`
	ShippingCharges float64            `json:"shippingCharges"`
	TotalAmount     float64            `json:"totalAmount"`
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.OrderItems) == 0 {
		fail(w, http.StatusBadRequest, "No order items")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.PlaceOrder(ctx, orders.NewOrder{
		UserID:        id.UserID,
		ShippingInfo:  req.ShippingInfo,
		Items:         req.OrderItems,
		PaymentMethod: req.PaymentMethod,
		PaymentInfo:   req.PaymentInfo,
		ItemsCents:    toCents(req.ItemsPrice),
		TaxCents:      toCents(req.TaxPrice),
		ShippingCents: toCents(req.ShippingCharges),
		TotalCents:    toCents(req.TotalAmount),
	})
	switch {
	case errors.Is(err, orders.ErrInsufficientStock):
		fail(w, http.StatusBadRequest, "Insufficient stock for one or more products.")
		return
	case errors.Is(err, orders.ErrProductNotFound):
		fail(w, http.StatusNotFound, "Product Not Found")
		return
	case err != nil:
		slog.Error("place order", "user", id.UserID, "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.cacheOrder(ctx, o)
	h.publishPlaced(r, o)

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "Order Placed Successfully",
		"order_id": o.ID,
	})
}

func (h *OrdersHandler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Store.ListAll(ctx)
	if err != nil {
		slog.Error("list orders", "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": emptyIfNil(os)})
}

func (h *OrdersHandler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Store.ListByUser(ctx, id.UserID)
	if err != nil {
		slog.Error("list my orders", "user", id.UserID, "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": emptyIfNil(os)})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderDetail, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": json.RawMessage(s)})
			return
		}
	}

	o, err := h.Store.Get(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		fail(w, http.StatusNotFound, "Order Not Found")
		return
	}
	if err != nil {
		slog.Error("get order", "order", orderID, "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

func (h *OrdersHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	from, to, deliveredAt, err := h.Store.AdvanceStatus(ctx, orderID)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		fail(w, http.StatusNotFound, "Order Not Found")
		return
	case errors.Is(err, orders.ErrAlreadyDelivered):
		fail(w, http.StatusBadRequest, "Order Already Delivered")
		return
	case err != nil:
		slog.Error("advance status", "order", orderID, "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderDetail, orderID)).Err()
	}

	if h.PubStatus != nil {
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventOrderStatusChanged,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: orderID,
			Payload: kafkax.MustMarshal(orders.OrderStatusChangedPayload{
				OrderID: orderID, From: from, To: to, DeliveredAt: deliveredAt,
			}),
		}
		h.PubStatus.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderStatusChanged)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order Processed Successfully",
	})
}

type paymentIntentReq struct {
	TotalAmount float64 `json:"totalAmount"`
	OrderID     string  `json:"orderId,omitempty"`
}

func (h *OrdersHandler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.TotalAmount <= 0 {
		fail(w, http.StatusBadRequest, "Invalid totalAmount")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	intent, err := h.Intents.CreateIntent(ctx, int64(toCents(req.TotalAmount)))
	if err != nil {
		slog.Error("create payment intent", "err", err)
		fail(w, http.StatusBadGateway, "Payment gateway error")
		return
	}

	// Tie the intent to its order so payment can be reconciled later.
	if req.OrderID != "" {
		if err := h.Store.AttachPaymentIntent(ctx, req.OrderID, intent.ID); err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				fail(w, http.StatusNotFound, "Order Not Found")
				return
			}
			slog.Error("attach payment intent", "order", req.OrderID, "err", err)
			fail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"client_secret": intent.ClientSecret,
	})
}

func (h *OrdersHandler) publishPlaced(r *http.Request, o orders.Order) {
	if h.PubPlaced == nil {
		return
	}
	items := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID: o.ID, UserID: o.UserID, Items: items, TotalCents: o.TotalCents,
		}),
	}
	h.PubPlaced.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o orders.Order) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderDetail, o.ID)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLDetailCache).Err()
}

func toCents(amount float64) int {
	return int(math.Round(amount * 100))
}

func emptyIfNil(os []orders.Order) []orders.Order {
	if os == nil {
		return []orders.Order{}
	}
	return os
}
