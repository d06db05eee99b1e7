package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket separates request classes so bill writes cannot starve reads.
type Bucket string

const (
	BucketRead  Bucket = "read"
	BucketWrite Bucket = "write"
)

// Limit is a token bucket shape: Rate tokens per second up to Burst.
type Limit struct {
	Rate  float64
	Burst int
}

// Decision is the outcome of taking one token.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// takeScript refills the bucket for the elapsed milliseconds and takes one
// token. It returns {allowed, retry_after_ms, remaining}.
var takeScript = redis.NewScript(`
local tokens_key = KEYS[1]
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

local state = redis.call('HMGET', tokens_key, 't', 'at')
local tokens = tonumber(state[1]) or burst
local at = tonumber(state[2]) or now_ms

tokens = math.min(burst, tokens + math.max(0, now_ms - at) * rate)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait_ms = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', tokens_key, 't', tostring(tokens), 'at', now_ms)
redis.call('PEXPIRE', tokens_key, math.ceil(burst / rate) + 1000)
return {allowed, wait_ms, math.floor(tokens)}
`)

// Take consumes a token from the client's bucket. Errors are returned to
// the caller, which decides whether to fail open.
func (c *Cache) Take(ctx context.Context, bucket Bucket, client string, limit Limit) (Decision, error) {
	if limit.Rate <= 0 || limit.Burst < 1 {
		return Decision{}, fmt.Errorf("invalid limit %+v", limit)
	}

	res, err := takeScript.Run(ctx, c.client,
		[]string{rateLimitKey(bucket, client)},
		limit.Rate, limit.Burst, time.Now().UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	return Decision{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
		Remaining:  res[2],
	}, nil
}

// RetryAfterSeconds rounds a wait up to whole seconds for the Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// rateLimitKey hashes the client so raw addresses never reach Redis.
func rateLimitKey(bucket Bucket, client string) string {
	sum := sha256.Sum256([]byte(client))
	return "billtrack:rl:" + string(bucket) + ":" + hex.EncodeToString(sum[:8])
}
