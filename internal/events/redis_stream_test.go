package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisStreamBus connects to PIXIESCALE_TEST_REDIS or skips. Every call gets
// a fresh stream prefix.
func redisStreamBus(t *testing.T, instanceID string) (*RedisStreamBus, *redis.Client, string) {
	t.Helper()
	addr := os.Getenv("PIXIESCALE_TEST_REDIS")
	if addr == "" {
		t.Skip("PIXIESCALE_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}
	prefix := "pixiescale-test:" + uuid.New().String()[:8] + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		client.Close()
	})
	cfg := config.RedisStreamConfig{Prefix: prefix, MaxLen: 1000, Block: 1}
	return NewRedisStreamBus(client, cfg, instanceID, logger.NewNop()), client, prefix
}

func pendingCount(t *testing.T, client *redis.Client, stream, group string) int64 {
	t.Helper()
	p, err := client.XPending(context.Background(), stream, group).Result()
	require.NoError(t, err)
	return p.Count
}

func TestRedisStreamPublishSubscribe(t *testing.T) {
	bus, client, prefix := redisStreamBus(t, "i1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, Message{Topic: "t", Key: "job-1", Payload: []byte("1")}))

	keys := make(chan string, 4)
	mu, got := collect(t, bus, ctx, "t", "g")
	go func() {
		_ = bus.Subscribe(ctx, "t", "keys", func(ctx context.Context, d *Delivery) error {
			keys <- d.Key
			assert.False(t, d.Timestamp.IsZero())
			return nil
		})
	}()
	require.NoError(t, bus.Publish(ctx, Message{Topic: "t", Key: "job-1", Payload: []byte("2")}))

	require.Eventually(t, func() bool {
		return len(snapshot(mu, got)) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"1", "2"}, snapshot(mu, got))
	assert.Equal(t, "job-1", <-keys)

	require.Eventually(t, func() bool {
		return pendingCount(t, client, prefix+"t", "g") == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRedisStreamUnackedEntryIsReplayed(t *testing.T) {
	bus, client, prefix := redisStreamBus(t, "i1")
	require.NoError(t, bus.Publish(context.Background(), Message{Topic: "t", Key: "k", Payload: []byte("x")}))

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Subscribe(ctx, "t", "g", func(ctx context.Context, d *Delivery) error {
			received <- string(d.Payload)
			return nil
		}, ManualAck())
	}()
	select {
	case p := <-received:
		assert.Equal(t, "x", p)
	case <-time.After(5 * time.Second):
		t.Fatal("first delivery never arrived")
	}
	cancel()
	<-done
	assert.Equal(t, int64(1), pendingCount(t, client, prefix+"t", "g"))

	// Same consumer name, so the pending entry comes back first.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	redelivered := make(chan *Delivery, 1)
	go func() {
		_ = bus.Subscribe(ctx2, "t", "g", func(ctx context.Context, d *Delivery) error {
			redelivered <- d
			return nil
		}, ManualAck())
	}()
	select {
	case d := <-redelivered:
		assert.Equal(t, "x", string(d.Payload))
		require.NoError(t, d.Ack(ctx2))
		assert.True(t, d.Acked())
	case <-time.After(5 * time.Second):
		t.Fatal("pending entry was not replayed")
	}
	assert.Zero(t, pendingCount(t, client, prefix+"t", "g"))
}

func TestRedisStreamBroadcastReachesEveryInstance(t *testing.T) {
	busA, client, prefix := redisStreamBus(t, "a")
	busB := NewRedisStreamBus(client, busA.cfg, "b", logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	muA, gotA := collect(t, busA, ctx, "t", "workers", Broadcast())
	muB, gotB := collect(t, busB, ctx, "t", "workers", Broadcast())
	require.Eventually(t, func() bool {
		groups, err := client.XInfoGroups(ctx, prefix+"t").Result()
		return err == nil && len(groups) == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, busA.Publish(ctx, Message{Topic: "t", Key: "k", Payload: []byte("cancel")}))
	require.Eventually(t, func() bool {
		return len(snapshot(muA, gotA)) == 1 && len(snapshot(muB, gotB)) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStreamIDTimeWithSequence(t *testing.T) {
	assert.Equal(t, time.UnixMilli(1700000000123), streamIDTime("1700000000123-4"))
	assert.True(t, streamIDTime("garbage").IsZero())
}
