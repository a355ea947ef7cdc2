package redisx

import "time"

const (
	// Cached order detail: order:detail:{order_id} -> serialized order
	KeyOrderDetail = "order:detail:%s"

	// Event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low-stock alert marker, keeps the worker from re-alerting every
	// order: stock:low:{product_id}
	KeyLowStock = "stock:low:%s"
)

var (
	TTLDetailCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLLowStock    = time.Hour
)
