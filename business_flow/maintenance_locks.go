package businessflow

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MaintenanceLocker serializes drift repair across goroutines and, with redis, across processes
type MaintenanceLocker interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// Deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type MaintenanceLockerImpl struct {
	mu     sync.Mutex
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewMaintenanceLocker creates a locker. A nil client keeps the lock process-local.
func NewMaintenanceLocker(client *redis.Client, prefix string, ttl time.Duration) MaintenanceLocker {
	return &MaintenanceLockerImpl{
		client: client,
		key:    prefix + "maintenance:reconcile",
		ttl:    ttl,
	}
}

func (l *MaintenanceLockerImpl) TryLock(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrMaintenanceInProgress
	}
	if l.client == nil {
		return l.mu.Unlock, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		l.mu.Unlock()
		return nil, NewBusinessError("MAINTENANCE_LOCK_FAILED", "Failed to acquire maintenance lock", err)
	}
	if !ok {
		l.mu.Unlock()
		return nil, ErrMaintenanceInProgress
	}

	return func() {
		defer l.mu.Unlock()
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{l.key}, token).Err(); err != nil {
			log.Printf("Failed to release maintenance lock: %v", err)
		}
	}, nil
}
