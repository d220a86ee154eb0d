package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Admission result codes returned by the seckill script.
const (
	AdmitOK        = 0
	AdmitSoldOut   = 1
	AdmitDuplicate = 2
)

// seckillAdmitScript checks stock and the one-order-per-user set, then
// decrements stock, records the user and appends the order entry to the
// stream, all in one atomic step. Splitting any of these into separate
// commands would either over-admit under concurrent callers or leave an
// admitted user with no queue entry if the process dies between commands.
//
// KEYS[1] = seckill:stock:<voucherId>
// KEYS[2] = seckill:order:<voucherId>
// KEYS[3] = order stream
// ARGV[1] = userId
// ARGV[2] = voucherId
// ARGV[3] = orderId
const seckillAdmitScript = `
local stock = tonumber(redis.call('get', KEYS[1]))
if (stock == nil or stock <= 0) then
    return 1
end
if (redis.call('sismember', KEYS[2], ARGV[1]) == 1) then
    return 2
end
redis.call('incrby', KEYS[1], -1)
redis.call('sadd', KEYS[2], ARGV[1])
redis.call('xadd', KEYS[3], '*', 'id', ARGV[3], 'userId', ARGV[1], 'voucherId', ARGV[2])
return 0
`

var admitScript = redis.NewScript(seckillAdmitScript)

// LoadScripts preloads server-side scripts so later calls run via EVALSHA.
func LoadScripts(ctx context.Context, client redis.Scripter) error {
	if err := admitScript.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("failed to load admit script: %w", err)
	}
	return nil
}

// Admit runs the atomic admission check for one (voucher, user) pair. On
// code 0 the queue entry {id, userId, voucherId} has already been appended
// to stream by the script itself.
func Admit(ctx context.Context, client redis.Scripter, stream string, voucherID, userID uint64, orderID int64) (int, error) {
	keys := []string{
		SeckillStockKey + strconv.FormatUint(voucherID, 10),
		SeckillOrderKey + strconv.FormatUint(voucherID, 10),
		stream,
	}

	result, err := admitScript.Run(ctx, client, keys,
		strconv.FormatUint(userID, 10),
		strconv.FormatUint(voucherID, 10),
		strconv.FormatInt(orderID, 10),
	).Result()
	if err != nil {
		return -1, err
	}

	code, ok := result.(int64)
	if !ok {
		return -1, fmt.Errorf("invalid admit script result: %v", result)
	}

	return int(code), nil
}
