package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{external_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cache status order: order_status:{order_id} -> {"status": N}
	KeyOrderStatus = "order_status:%d"

	// Dedup pesan consumer: dedup:{group}:{topic}:{partition}:{offset}
	KeyDedup = "dedup:%s:%s:%d:%d"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
