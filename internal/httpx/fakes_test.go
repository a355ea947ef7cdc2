package httpx

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shoplite/shop-backend/internal/auth"
	"github.com/shoplite/shop-backend/internal/catalog"
	"github.com/shoplite/shop-backend/internal/orders"
	"github.com/shoplite/shop-backend/internal/payments"
)

// fakeStore keeps products and orders in memory with the same
// all-or-nothing placement semantics as the Postgres repo.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
	orders   map[string]*orders.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*catalog.Product),
		orders:   make(map[string]*orders.Order),
	}
}

func (s *fakeStore) addProduct(id string, stock, priceCents int) {
	s.products[id] = &catalog.Product{
		ID: id, SKU: "sku-" + id, Name: "product " + id,
		Stock: stock, PriceCents: priceCents,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func (s *fakeStore) stock(id string) int { return s.products[id].Stock }

func (s *fakeStore) PlaceOrder(ctx context.Context, in orders.NewOrder) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var shortfalls []orders.Shortfall
	for _, it := range in.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrProductNotFound, it.ProductID)
		}
		if p.Stock < it.Qty {
			shortfalls = append(shortfalls, orders.Shortfall{
				ProductID: it.ProductID, Required: it.Qty, Available: p.Stock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return orders.Order{}, &orders.StockError{Shortfalls: shortfalls}
	}

	o := orders.Order{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		ShippingInfo:  in.ShippingInfo,
		PaymentMethod: in.PaymentMethod,
		PaymentInfo:   in.PaymentInfo,
		ItemsCents:    in.ItemsCents,
		TaxCents:      in.TaxCents,
		ShippingCents: in.ShippingCents,
		TotalCents:    in.TotalCents,
		Status:        orders.StatusPreparing,
		CreatedAt:     time.Now(),
	}
	for _, it := range in.Items {
		p := s.products[it.ProductID]
		p.Stock -= it.Qty
		o.Items = append(o.Items, orders.Item{
			ProductID: it.ProductID, Qty: it.Qty, UnitPriceCents: p.PriceCents,
		})
	}
	s.orders[o.ID] = &o
	return o, nil
}

func (s *fakeStore) AdvanceStatus(ctx context.Context, orderID string) (orders.Status, orders.Status, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return "", "", nil, orders.ErrOrderNotFound
	}
	from := o.Status
	to, ok := from.Next()
	if !ok {
		return from, "", nil, orders.ErrAlreadyDelivered
	}
	o.Status = to
	if to == orders.StatusDelivered {
		now := time.Now()
		o.DeliveredAt = &now
		return from, to, &now, nil
	}
	return from, to, nil, nil
}

func (s *fakeStore) AttachPaymentIntent(ctx context.Context, orderID, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.PaymentIntentID = intentID
	return nil
}

func (s *fakeStore) Get(ctx context.Context, orderID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return *o, nil
}

func (s *fakeStore) ListAll(ctx context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

// fakeCatalog backs the product handlers.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]*catalog.Product)}
}

func (s *fakeCatalog) List(ctx context.Context) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Product
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeCatalog) Get(ctx context.Context, id string) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return *p, nil
}

func (s *fakeCatalog) Create(ctx context.Context, sku, name string, priceCents, stock int) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := catalog.Product{
		ID: uuid.NewString(), SKU: sku, Name: name,
		Stock: stock, PriceCents: priceCents,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.products[p.ID] = &p
	return p, nil
}

type fakeIntents struct {
	lastAmount int64
	err        error
}

func (f *fakeIntents) CreateIntent(ctx context.Context, amountCents int64) (payments.Intent, error) {
	if f.err != nil {
		return payments.Intent{}, f.err
	}
	f.lastAmount = amountCents
	return payments.Intent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, value)
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// withIdentity forces the given identity onto every request, standing in
// for the auth middleware.
func withIdentity(id auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
