package redisx

import "time"

const (
	// Dedup for processed webhook/fulfillment events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cache order status per owner: order_status:{user_id}:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%s:%s"

	// Cache of the active product list, stored as raw JSON.
	KeyCatalogActive = "catalog:active"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLCatalog     = 5 * time.Minute
)
