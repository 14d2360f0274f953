package events

import (
	"context"
	"sync"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// KafkaBus maps topics to Kafka topics and groups to consumer groups. Messages
// are keyed so that all events of one job land on one partition.
type KafkaBus struct {
	cfg        config.KafkaConfig
	instanceID string
	writer     *kafka.Writer
	logger     logger.Logger

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafkaBus(cfg config.KafkaConfig, instanceID string, log logger.Logger) *KafkaBus {
	return &KafkaBus{
		cfg:        cfg,
		instanceID: instanceID,
		logger:     log,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (b *KafkaBus) Publish(ctx context.Context, msg Message) error {
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Time:  msg.Timestamp,
	})
	if err != nil {
		return errors.Wrapf(err, "kafka write %s", msg.Topic)
	}
	return nil
}

// Subscribe commits offsets only on Ack. Committing an offset also covers the
// earlier offsets of the partition, so a commit waits until every earlier
// fetched offset of that partition is acked too.
func (b *KafkaBus) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	o := applyOptions(opts)

	rc := kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     group,
		Topic:       topic,
		MinBytes:    b.cfg.MinBytes,
		MaxBytes:    b.cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	}
	if o.broadcast {
		rc.GroupID = group + "-" + b.instanceID
		rc.StartOffset = kafka.LastOffset
	}
	r := kafka.NewReader(rc)
	b.track(r)
	defer r.Close()

	offsets := newOffsetTracker()
	b.logger.Infof("kafka subscribed topic=%s group=%s", topic, rc.GroupID)
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "kafka fetch %s", topic)
		}
		km := m
		offsets.fetched(km.Partition, km.Offset)
		d := NewDelivery(Message{
			Topic:     km.Topic,
			Key:       string(km.Key),
			Payload:   km.Value,
			Timestamp: km.Time,
		}, func(ctx context.Context) error {
			upTo, ok := offsets.acked(km.Partition, km.Offset)
			if !ok {
				return nil
			}
			return r.CommitMessages(ctx, kafka.Message{Topic: km.Topic, Partition: km.Partition, Offset: upTo})
		})
		deliver(ctx, b.logger, h, d, o)
	}
}

func (b *KafkaBus) track(r *kafka.Reader) {
	b.mu.Lock()
	b.readers = append(b.readers, r)
	b.mu.Unlock()
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readers = nil
	return b.writer.Close()
}

// offsetTracker holds the fetched but not yet committable offsets of each
// partition in fetch order.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	pending []int64
	acked   map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

func (t *offsetTracker) fetched(partition int, offset int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.partitions[partition]
	// An offset at or below the last fetched one means the partition was
	// rewound, e.g. after a rebalance. Older bookkeeping no longer applies.
	if !ok || (len(p.pending) > 0 && offset <= p.pending[len(p.pending)-1]) {
		p = &partitionOffsets{acked: make(map[int64]bool)}
		t.partitions[partition] = p
	}
	p.pending = append(p.pending, offset)
}

// acked marks offset done and returns the highest offset whose predecessors
// are all acked. ok is false when nothing new became committable.
func (t *offsetTracker) acked(partition int, offset int64) (upTo int64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, found := t.partitions[partition]
	if !found || len(p.pending) == 0 || offset < p.pending[0] || offset > p.pending[len(p.pending)-1] {
		return 0, false
	}
	p.acked[offset] = true
	for len(p.pending) > 0 && p.acked[p.pending[0]] {
		upTo, ok = p.pending[0], true
		delete(p.acked, upTo)
		p.pending = p.pending[1:]
	}
	return upTo, ok
}
