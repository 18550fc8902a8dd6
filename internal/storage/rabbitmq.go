package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"recruiter-go/internal/config"
	"recruiter-go/internal/logger"
)

// MessageQueue is the messaging surface the outbox relay and the recalc
// consumer depend on.
type MessageQueue interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	EnsureQueue(queueName string, durable bool) error
	BindQueue(queueName, exchangeName, routingKey string) error
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ wraps one AMQP connection with a pooled-channel publisher.
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	declareMutex sync.Mutex
	exchanges    map[string]bool
	queues       map[string]bool
	bindings     map[string]bool // "exchange:queue:routingKey"
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ connects to the broker.
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rabbitmq config must not be nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq URL must not be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:      conn,
		exchanges: make(map[string]bool),
		queues:    make(map[string]bool),
		bindings:  make(map[string]bool),
		cfg:       cfg,
	}
	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, chErr := conn.Channel()
			if chErr != nil {
				logger.Error().Err(chErr).Msg("Failed to open RabbitMQ channel")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("opening RabbitMQ channel failed")
	}
	mq.putChannel(testCh)

	logger.Info().Str("url", cfg.URL).Msg("Connected to RabbitMQ")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open RabbitMQ channel")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close closes the underlying connection.
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange declares the exchange once per process.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange name must not be empty")
	}

	r.declareMutex.Lock()
	defer r.declareMutex.Unlock()
	if r.exchanges[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("no RabbitMQ channel available")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", exchangeName, err)
	}
	r.exchanges[exchangeName] = true
	return nil
}

// EnsureQueue declares the queue once per process.
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	if queueName == "" {
		return fmt.Errorf("queue name must not be empty")
	}

	r.declareMutex.Lock()
	defer r.declareMutex.Unlock()
	if r.queues[queueName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("no RabbitMQ channel available")
	}
	defer r.putChannel(ch)

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queueName, err)
	}
	r.queues[queueName] = true
	return nil
}

// BindQueue binds queue to exchange under routingKey, once per process.
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)

	r.declareMutex.Lock()
	defer r.declareMutex.Unlock()
	if r.bindings[bindingKey] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("no RabbitMQ channel available")
	}
	defer r.putChannel(ch)

	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("binding queue %s to %s: %w", queueName, exchangeName, err)
	}
	r.bindings[bindingKey] = true
	return nil
}

// PublishMessage publishes raw bytes. persistent selects delivery mode 2.
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("no RabbitMQ channel available")
	}
	defer r.putChannel(ch)

	var deliveryMode uint8 = 1
	if persistent {
		deliveryMode = 2
	}

	return ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
}

// PublishJSON marshals data and publishes it.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// StartConsumer consumes queueName on a dedicated channel. handler returning
// true acks the message, false nacks it with requeue. Closing the returned
// channel stops the consumer.
func (r *RabbitMQ) StartConsumer(queueName string, prefetchCount int, handler func([]byte) bool) (chan<- struct{}, error) {
	stopCh := make(chan struct{})

	ch := r.getChannel()
	if ch == nil {
		return nil, fmt.Errorf("no RabbitMQ channel available")
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("setting QoS: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		r.putChannel(ch)
		return nil, fmt.Errorf("registering consumer on %s: %w", queueName, err)
	}

	go func() {
		defer r.putChannel(ch)
		defer logger.Info().Str("queue", queueName).Msg("RabbitMQ consumer stopped")

		logger.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("RabbitMQ consumer started")
		for {
			select {
			case <-stopCh:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					logger.Warn().Str("queue", queueName).Msg("RabbitMQ delivery channel closed")
					return
				}
				if handler(delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						logger.Error().Err(err).Msg("Failed to ack message")
					}
				} else {
					if err := delivery.Nack(false, true); err != nil {
						logger.Error().Err(err).Msg("Failed to nack message")
					}
				}
			}
		}
	}()

	return stopCh, nil
}
