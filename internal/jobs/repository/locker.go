package repository

import (
	"context"
	"sync"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// memoryLocker is a keyed mutex. Entries are dropped once nobody holds or
// waits for them.
type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() jobs.Locker {
	return &memoryLocker{locks: make(map[string]*keyLock)}
}

func (m *memoryLocker) Lock(ctx context.Context, jobID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[jobID]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[jobID] = l
	}
	l.refs++
	m.mu.Unlock()

	// A free lock is taken even when ctx is already done.
	select {
	case l.ch <- struct{}{}:
	default:
		select {
		case l.ch <- struct{}{}:
		case <-ctx.Done():
			m.release(jobID, l)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.release(jobID, l)
		})
	}, nil
}

func (m *memoryLocker) release(jobID string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, jobID)
	}
}

const lockRetryInterval = 25 * time.Millisecond

// unlockScript deletes the lock only while it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// redisLocker lets several orchestrator instances share one job store. The
// TTL bounds how long a crashed holder blocks a job.
type redisLocker struct {
	redisClient *redis.Client
	prefix      string
	ttl         time.Duration
	logger      logger.Logger
}

func NewRedisLocker(redisClient *redis.Client, prefix string, ttl time.Duration, log logger.Logger) jobs.Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{redisClient: redisClient, prefix: prefix, ttl: ttl, logger: log}
}

func (r *redisLocker) Lock(ctx context.Context, jobID string) (func(), error) {
	key := r.prefix + "lock:" + jobID
	token := uuid.New().String()
	for {
		ok, err := r.redisClient.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrapf(err, "lock job %s", jobID)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unlockScript.Run(context.Background(), r.redisClient, []string{key}, token).Err(); err != nil {
				r.logger.Errorf("unlock job %s: %v", jobID, err)
			}
		})
	}, nil
}
