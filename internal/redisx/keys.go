package redisx

import "time"

const (
	// Session issued by the identity provider: sess:{token} -> principal JSON
	KeySession = "sess:%s"

	// Checkout idempotency: idem:checkout:{user_id}:{idempotency_key} -> order_id
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Cached category list: cache:categories -> JSON array
	KeyCacheCategories = "cache:categories"

	// Cached featured-products page: cache:products:featured:{limit}:{offset} -> JSON
	KeyCacheFeatured = "cache:products:featured:%d:%d"

	// Cached single product page: cache:product:{id} -> JSON
	KeyCacheProduct = "cache:product:%d"

	// Pattern covering every product cache entry, for bulk invalidation.
	PatternCacheProducts = "cache:product*"

	// Cached order status: order_status:{order_id} -> {"status":...,"payment_status":...}
	KeyOrderStatus = "order_status:%s"

	// Worker event dedup: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession     = 24 * time.Hour
	TTLIdempotency = 24 * time.Hour
	TTLCache       = 10 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
