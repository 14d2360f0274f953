package events

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
)

const memoryRetention = 10000

// MemoryBus is an in-process Bus. Groups created after messages were
// published start from the oldest retained message, like a durable broker.
// Unacknowledged deliveries of a subscription that stops are requeued.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]*memTopic
	seq    uint64
	subs   uint64
	closed bool
	logger logger.Logger
}

type memTopic struct {
	log    []*memEntry
	groups map[string]*memGroup
}

type memEntry struct {
	seq uint64
	msg Message
}

type memGroup struct {
	mu       sync.Mutex
	queue    []*memEntry
	inflight map[uint64]memInflight
	notify   chan struct{}
}

type memInflight struct {
	entry *memEntry
	owner uint64
}

func NewMemoryBus(log logger.Logger) *MemoryBus {
	return &MemoryBus{topics: make(map[string]*memTopic), logger: log}
}

func (b *MemoryBus) topic(name string) *memTopic {
	t, ok := b.topics[name]
	if !ok {
		t = &memTopic{groups: make(map[string]*memGroup)}
		b.topics[name] = t
	}
	return t
}

func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("memory bus closed")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	b.seq++
	e := &memEntry{seq: b.seq, msg: msg}
	t := b.topic(msg.Topic)
	t.log = append(t.log, e)
	if len(t.log) > memoryRetention {
		t.log = t.log[len(t.log)-memoryRetention:]
	}
	for _, g := range t.groups {
		g.push(e)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	o := applyOptions(opts)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("memory bus closed")
	}
	b.subs++
	owner := b.subs
	if o.broadcast {
		group = group + "#" + strconv.FormatUint(owner, 10)
	}
	t := b.topic(topic)
	g, ok := t.groups[group]
	if !ok {
		g = newMemGroup()
		if !o.broadcast {
			for _, e := range t.log {
				g.push(e)
			}
		}
		t.groups[group] = g
	}
	b.mu.Unlock()

	defer g.release(owner)
	if o.broadcast {
		defer b.dropGroup(topic, group)
	}

	for {
		e, err := g.next(ctx, owner)
		if err != nil {
			return nil
		}
		seq := e.seq
		d := NewDelivery(e.msg, func(context.Context) error {
			g.ack(seq)
			return nil
		})
		deliver(ctx, b.logger, h, d, o)
	}
}

func (b *MemoryBus) dropGroup(topic, group string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topic(topic).groups, group)
}

// Published returns the retained messages of a topic, oldest first.
func (b *MemoryBus) Published(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[topic]
	if !ok {
		return nil
	}
	out := make([]Message, len(t.log))
	for i, e := range t.log {
		out[i] = e.msg
	}
	return out
}

// Pending reports messages of a group that are queued or delivered but not
// yet acknowledged.
func (b *MemoryBus) Pending(topic, group string) int {
	b.mu.Lock()
	t, ok := b.topics[topic]
	var g *memGroup
	if ok {
		g = t.groups[group]
	}
	b.mu.Unlock()
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue) + len(g.inflight)
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func newMemGroup() *memGroup {
	return &memGroup{
		inflight: make(map[uint64]memInflight),
		notify:   make(chan struct{}, 1),
	}
}

func (g *memGroup) signal() {
	select {
	case g.notify <- struct{}{}:
	default:
	}
}

func (g *memGroup) push(e *memEntry) {
	g.mu.Lock()
	g.queue = append(g.queue, e)
	g.mu.Unlock()
	g.signal()
}

func (g *memGroup) next(ctx context.Context, owner uint64) (*memEntry, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.mu.Lock()
		if len(g.queue) > 0 {
			e := g.queue[0]
			g.queue = g.queue[1:]
			g.inflight[e.seq] = memInflight{entry: e, owner: owner}
			more := len(g.queue) > 0
			g.mu.Unlock()
			if more {
				g.signal()
			}
			return e, nil
		}
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.notify:
		}
	}
}

func (g *memGroup) ack(seq uint64) {
	g.mu.Lock()
	delete(g.inflight, seq)
	g.mu.Unlock()
}

// release puts every unacknowledged delivery of owner back at the head of
// the queue in publish order.
func (g *memGroup) release(owner uint64) {
	g.mu.Lock()
	var back []*memEntry
	for seq, in := range g.inflight {
		if in.owner == owner {
			back = append(back, in.entry)
			delete(g.inflight, seq)
		}
	}
	sort.Slice(back, func(i, j int) bool { return back[i].seq < back[j].seq })
	g.queue = append(back, g.queue...)
	requeued := len(back) > 0
	g.mu.Unlock()
	if requeued {
		g.signal()
	}
}
