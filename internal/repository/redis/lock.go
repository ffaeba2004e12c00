package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autofillTuner/business/learning"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockNotHeld = errors.New("lock no longer held")

type LockRepository struct {
	client *redis.Client
}

var _ learning.Locker = (*LockRepository)(nil)

func NewLockRepository(client *redis.Client) *LockRepository {
	return &LockRepository{
		client: client,
	}
}

// TryLock sets key with a random token if it is absent. ok is false when
// someone else holds it.
func (r *LockRepository) TryLock(ctx context.Context, key string, ttl time.Duration) (learning.Lock, bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	return &redisLock{client: r.client, key: key, token: token}, true, nil
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
