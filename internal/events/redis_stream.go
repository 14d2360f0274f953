package events

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	streamKeyField     = "key"
	streamPayloadField = "payload"
	streamReadCount    = 10
)

// RedisStreamBus keeps one stream per topic and one consumer group per group.
// The consumer name is the instance id, so a restarted instance first replays
// the entries it had received but not acknowledged.
type RedisStreamBus struct {
	client   *redis.Client
	cfg      config.RedisStreamConfig
	consumer string
	logger   logger.Logger
}

func NewRedisStreamBus(client *redis.Client, cfg config.RedisStreamConfig, instanceID string, log logger.Logger) *RedisStreamBus {
	return &RedisStreamBus{client: client, cfg: cfg, consumer: instanceID, logger: log}
}

func (b *RedisStreamBus) stream(topic string) string {
	return b.cfg.Prefix + topic
}

func (b *RedisStreamBus) Publish(ctx context.Context, msg Message) error {
	args := &redis.XAddArgs{
		Stream: b.stream(msg.Topic),
		Values: map[string]interface{}{
			streamKeyField:     msg.Key,
			streamPayloadField: msg.Payload,
		},
	}
	if b.cfg.MaxLen > 0 {
		args.MaxLen = b.cfg.MaxLen
		args.Approx = true
	}
	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrapf(err, "xadd %s", args.Stream)
	}
	return nil
}

func (b *RedisStreamBus) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	o := applyOptions(opts)
	stream := b.stream(topic)
	start := "0"
	if o.broadcast {
		group = group + "-" + b.consumer
		start = "$"
	}
	if err := b.client.XGroupCreateMkStream(ctx, stream, group, start).Err(); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrapf(err, "create group %s on %s", group, stream)
	}
	if o.broadcast {
		defer b.client.XGroupDestroy(context.Background(), stream, group)
	}

	block := time.Duration(b.cfg.Block) * time.Second
	if block <= 0 {
		block = 5 * time.Second
	}

	// "0" walks this consumer's pending entries, ">" asks for new ones.
	cursor := "0"
	b.logger.Infof("redis stream subscribed stream=%s group=%s", stream, group)
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: b.consumer,
			Streams:  []string{stream, cursor},
			Count:    streamReadCount,
			Block:    block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "xreadgroup %s", stream)
		}

		received := 0
		for _, s := range res {
			for _, m := range s.Messages {
				received++
				if cursor != ">" {
					cursor = m.ID
				}
				d := b.delivery(topic, stream, group, m)
				deliver(ctx, b.logger, h, d, o)
			}
		}
		if cursor != ">" && received == 0 {
			cursor = ">"
		}
	}
}

func (b *RedisStreamBus) delivery(topic, stream, group string, m redis.XMessage) *Delivery {
	key, _ := m.Values[streamKeyField].(string)
	payload, _ := m.Values[streamPayloadField].(string)
	id := m.ID
	msg := Message{Topic: topic, Key: key, Payload: []byte(payload), Timestamp: streamIDTime(id)}
	return NewDelivery(msg, func(ctx context.Context) error {
		return b.client.XAck(ctx, stream, group, id).Err()
	})
}

// streamIDTime recovers the publish time from an entry id "<millis>-<seq>".
func streamIDTime(id string) time.Time {
	ms, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n)
}

func (b *RedisStreamBus) Close() error {
	return nil
}
