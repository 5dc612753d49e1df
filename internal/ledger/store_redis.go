package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cddflow/pkg/requestcontext"
)

const (
	redisKeyPrefix   = "cdd:ledger:"
	redisPendingZSet = "cdd:ledger:pending"
)

// beginScript is the atomic check-and-set: claims a missing or FAILED key,
// otherwise reports the existing state. Runs as one Lua script so no two
// callers can both observe "free" and both claim.
var beginScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if status == false or status == 'FAILED' then
  if status == false then
    redis.call('HSET', KEYS[1], 'created_at', ARGV[1])
  end
  redis.call('HSET', KEYS[1], 'status', 'PENDING', 'updated_at', ARGV[1])
  redis.call('ZADD', KEYS[2], tonumber(ARGV[1]), KEYS[1])
  return {'ACQUIRED', '', ''}
end
if status == 'CREATED' then
  local id = redis.call('HGET', KEYS[1], 'case_id')
  local url = redis.call('HGET', KEYS[1], 'case_url')
  return {'ALREADY_CREATED', id or '', url or ''}
end
return {'ALREADY_PENDING', '', ''}
`)

var commitScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'PENDING' then
  return 0
end
redis.call('HSET', KEYS[1], 'status', 'CREATED', 'case_id', ARGV[2], 'case_url', ARGV[3], 'updated_at', ARGV[1])
redis.call('ZREM', KEYS[2], KEYS[1])
return 1
`)

var abortScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'PENDING' then
  return 0
end
redis.call('HSET', KEYS[1], 'status', 'FAILED', 'updated_at', ARGV[1])
redis.call('ZREM', KEYS[2], KEYS[1])
return 1
`)

// failStaleScript re-checks under the script lock that the key is still a
// stale PENDING before failing it, so a concurrent Commit cannot lose.
var failStaleScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
local updated = tonumber(redis.call('HGET', KEYS[1], 'updated_at'))
if status == 'PENDING' and updated ~= nil and updated < tonumber(ARGV[1]) then
  redis.call('HSET', KEYS[1], 'status', 'FAILED', 'updated_at', ARGV[2])
  redis.call('ZREM', KEYS[2], KEYS[1])
  return 1
end
return 0
`)

// RedisStore persists the ledger in Redis hashes with a sorted-set index of
// pending keys for the recovery sweep. No TTLs are set: records are
// retained for audit.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed ledger.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Begin(ctx context.Context, key Key) (BeginResult, error) {
	now := requestcontext.Now(ctx).UnixMilli()
	raw, err := beginScript.Run(ctx, s.client,
		[]string{s.recordKey(key), redisPendingZSet},
		now,
	).StringSlice()
	if err != nil {
		return BeginResult{}, fmt.Errorf("begin ledger key: %w", err)
	}
	if len(raw) != 3 {
		return BeginResult{}, fmt.Errorf("begin ledger key: unexpected script reply of length %d", len(raw))
	}
	return BeginResult{State: BeginState(raw[0]), CaseID: raw[1], CaseURL: raw[2]}, nil
}

func (s *RedisStore) Commit(ctx context.Context, key Key, caseID, caseURL string) error {
	now := requestcontext.Now(ctx).UnixMilli()
	ok, err := commitScript.Run(ctx, s.client,
		[]string{s.recordKey(key), redisPendingZSet},
		now, caseID, caseURL,
	).Int()
	if err != nil {
		return fmt.Errorf("commit ledger key: %w", err)
	}
	if ok == 0 {
		return errNotPending("commit", key)
	}
	return nil
}

func (s *RedisStore) Abort(ctx context.Context, key Key) error {
	now := requestcontext.Now(ctx).UnixMilli()
	ok, err := abortScript.Run(ctx, s.client,
		[]string{s.recordKey(key), redisPendingZSet},
		now,
	).Int()
	if err != nil {
		return fmt.Errorf("abort ledger key: %w", err)
	}
	if ok == 0 {
		return errNotPending("abort", key)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (*CaseRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get ledger key: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	record := &CaseRecord{
		Key:     key,
		CaseID:  fields["case_id"],
		CaseURL: fields["case_url"],
		Status:  Status(fields["status"]),
	}
	if record.CreatedAt, err = parseMilli(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("get ledger key: %w", err)
	}
	if record.UpdatedAt, err = parseMilli(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("get ledger key: %w", err)
	}
	return record, nil
}

func (s *RedisStore) ResolveStale(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffMilli := cutoff.UnixMilli()
	stale, err := s.client.ZRangeByScore(ctx, redisPendingZSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoffMilli-1, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan stale ledger keys: %w", err)
	}

	now := requestcontext.Now(ctx).UnixMilli()
	resolved := 0
	for _, recordKey := range stale {
		failed, err := failStaleScript.Run(ctx, s.client,
			[]string{recordKey, redisPendingZSet},
			cutoffMilli, now,
		).Int()
		if err != nil {
			return resolved, fmt.Errorf("resolve stale ledger key %s: %w", recordKey, err)
		}
		resolved += failed
	}
	return resolved, nil
}

func (s *RedisStore) recordKey(key Key) string {
	return redisKeyPrefix + key.String()
}

func parseMilli(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	milli, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return time.UnixMilli(milli), nil
}
