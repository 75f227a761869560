package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis the locker uses; *redis.Client satisfies it.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// SlotLocker holds a short lock on a (doctor, instant) pair while a booking
// insert is in flight. The database constraint stays the final authority.
type SlotLocker struct {
	rdb    Client
	ttl    time.Duration
	prefix string
}

func NewSlotLocker(rdb Client, ttl time.Duration) *SlotLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &SlotLocker{rdb: rdb, ttl: ttl, prefix: "clinic:slot:"}
}

// Key is stable for equal instants regardless of their location.
func (l *SlotLocker) Key(doctorID string, start time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, doctorID, start.UTC().UnixMilli())
}

// TryLock returns ok=false without error when someone else holds the slot.
func (l *SlotLocker) TryLock(ctx context.Context, doctorID string, start time.Time) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, l.Key(doctorID, start), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *SlotLocker) Release(ctx context.Context, doctorID string, start time.Time, token string) error {
	if token == "" {
		return nil
	}
	if err := l.rdb.Eval(ctx, releaseScript, []string{l.Key(doctorID, start)}, token).Err(); err != nil {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
