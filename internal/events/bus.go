// Package events is the message bus every service talks through. A Bus
// publishes to named topics and delivers each topic to consumer groups, one
// member of a group receiving any given message. Delivery is at least once.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/amankumarsingh77/pixiescale/pkg/logger"
)

type Message struct {
	Topic     string
	Key       string
	Payload   []byte
	Timestamp time.Time
}

// Delivery is a received message. Until Ack succeeds the broker may deliver
// it again.
type Delivery struct {
	Message

	ack    func(ctx context.Context) error
	once   sync.Once
	ackErr error
	acked  bool
	mu     sync.Mutex
}

func NewDelivery(msg Message, ack func(ctx context.Context) error) *Delivery {
	return &Delivery{Message: msg, ack: ack}
}

// Ack acknowledges the message. Only the first call reaches the broker.
func (d *Delivery) Ack(ctx context.Context) error {
	d.once.Do(func() {
		if d.ack != nil {
			d.ackErr = d.ack(ctx)
		}
		d.mu.Lock()
		d.acked = d.ackErr == nil
		d.mu.Unlock()
	})
	return d.ackErr
}

func (d *Delivery) Acked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked
}

func (d *Delivery) Decode(v interface{}) error {
	return json.Unmarshal(d.Payload, v)
}

// Handler is invoked sequentially for each delivery of a subscription, so a
// handler that blocks holds back the next message.
type Handler func(ctx context.Context, d *Delivery) error

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Subscriber interface {
	// Subscribe consumes topic as a member of group until ctx is done.
	Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

type subscribeOptions struct {
	manualAck bool
	broadcast bool
}

type SubscribeOption func(*subscribeOptions)

// ManualAck leaves acknowledgment to the handler. Without it a delivery is
// acknowledged once the handler returns, whatever it returned.
func ManualAck() SubscribeOption {
	return func(o *subscribeOptions) { o.manualAck = true }
}

// Broadcast gives every process instance its own group so each instance sees
// every message published after it subscribed.
func Broadcast() SubscribeOption {
	return func(o *subscribeOptions) { o.broadcast = true }
}

func applyOptions(opts []SubscribeOption) subscribeOptions {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func deliver(ctx context.Context, log logger.Logger, h Handler, d *Delivery, o subscribeOptions) {
	if err := h(ctx, d); err != nil {
		log.Errorf("handler error topic=%s key=%s: %v", d.Topic, d.Key, err)
	}
	if o.manualAck || ctx.Err() != nil {
		return
	}
	if err := d.Ack(ctx); err != nil {
		log.Errorf("ack error topic=%s key=%s: %v", d.Topic, d.Key, err)
	}
}
