package events

import (
	"context"
	"sync"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpKeyHeader = "x-message-key"

// AMQPBus publishes to one topic exchange with the topic as routing key. Each
// group is a durable queue bound to the topic.
type AMQPBus struct {
	cfg        config.AMQPConfig
	instanceID string
	conn       *amqp.Connection
	logger     logger.Logger

	mu    sync.Mutex
	pubCh *amqp.Channel
}

func NewAMQPBus(cfg config.AMQPConfig, instanceID string, log logger.Logger) (*AMQPBus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "amqp dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "amqp channel")
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", cfg.Exchange)
	}
	return &AMQPBus{cfg: cfg, instanceID: instanceID, conn: conn, pubCh: ch, logger: log}, nil
}

func (b *AMQPBus) Publish(ctx context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.pubCh.PublishWithContext(ctx, b.cfg.Exchange, msg.Topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.Timestamp,
		Headers:      amqp.Table{amqpKeyHeader: msg.Key},
		Body:         msg.Payload,
	})
	if err != nil {
		return errors.Wrapf(err, "amqp publish %s", msg.Topic)
	}
	return nil
}

// Subscribe closes its channel on return, which hands unacknowledged
// deliveries back to the broker.
func (b *AMQPBus) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	o := applyOptions(opts)

	ch, err := b.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "amqp channel")
	}
	defer ch.Close()

	prefetch := b.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return errors.Wrap(err, "amqp qos")
	}

	name, durable, autoDelete := group+"."+topic, true, false
	if o.broadcast {
		name, durable, autoDelete = group+"."+b.instanceID+"."+topic, false, true
	}
	q, err := ch.QueueDeclare(name, durable, autoDelete, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "declare queue %s", name)
	}
	if err := ch.QueueBind(q.Name, topic, b.cfg.Exchange, false, nil); err != nil {
		return errors.Wrapf(err, "bind queue %s", q.Name)
	}

	msgs, err := ch.Consume(q.Name, b.instanceID+"."+topic, false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "consume %s", q.Name)
	}

	b.logger.Infof("amqp subscribed queue=%s", q.Name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return errors.Errorf("amqp delivery channel for %s closed", q.Name)
			}
			key, _ := m.Headers[amqpKeyHeader].(string)
			am := m
			d := NewDelivery(Message{
				Topic:     topic,
				Key:       key,
				Payload:   am.Body,
				Timestamp: am.Timestamp,
			}, func(context.Context) error {
				return am.Ack(false)
			})
			deliver(ctx, b.logger, h, d, o)
		}
	}
}

func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubCh != nil {
		_ = b.pubCh.Close()
	}
	return b.conn.Close()
}
