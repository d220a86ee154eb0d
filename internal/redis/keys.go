package redis

// Key namespaces. Cache keys are "<entityType>:<id>"; lock names get the
// "lock:" prefix applied by the lock package, so LockOrderKey carries only
// the resource part.
const (
	CacheShopKey    = "cache:shop:"
	CacheVoucherKey = "cache:voucher:"

	LockOrderKey = "order:"

	SeckillStockKey = "seckill:stock:"
	SeckillOrderKey = "seckill:order:"
)
