package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"tablero/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxRetries     = 3
)

var errCircuitOpen = errors.New("circuit breaker is open")

// Client talks to a fanout exchange. Every consumer gets its own exclusive,
// auto-deleted queue, so each dashboard process sees every reload and
// nothing piles up for processes that are down.
type Client struct {
	url          string
	exchangeName string
	queuePrefix  string
	logger       *log.Logger

	dial    func(url string) (connection, error)
	mu      sync.Mutex
	conn    connection
	channel channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient connects and declares the exchange. queuePrefix names the
// per-consumer queues; an empty prefix lets the broker name them.
func NewClient(url, exchangeName, queuePrefix string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queuePrefix:  queuePrefix,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dial := c.dial
	if dial == nil {
		dial = dialAMQP
	}
	conn, err := dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(ch, c.exchangeName); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("setup exchange: %w", err)
	}

	oldConn, oldChannel := c.conn, c.channel
	c.conn = conn
	c.channel = ch

	// The replaced connection is usually dead already; close errors are expected.
	if oldChannel != nil {
		_ = oldChannel.Close()
	}
	if oldConn != nil {
		_ = oldConn.Close()
	}
	return nil
}

// declarer is the part of *amqp091.Channel used to declare topology.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
}

// channel is the subset of *amqp091.Channel the client uses.
type channel interface {
	declarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	IsClosed() bool
	Close() error
}

type connection interface {
	channel() (channel, error)
	Close() error
}

type amqpConnection struct {
	*amqp091.Connection
}

func (c amqpConnection) channel() (channel, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

func declareExchange(ch declarer, exchangeName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"fanout",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// declareConsumerQueue declares a queue private to this connection and binds
// it to the exchange. It goes away with the connection.
func declareConsumerQueue(ch declarer, exchangeName, queuePrefix string) (string, error) {
	name := ""
	if queuePrefix != "" {
		name = queuePrefix + "." + uuid.NewString()
	}
	q, err := ch.QueueDeclare(
		name,  // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}

	// Fanout exchanges ignore the routing key.
	if err := ch.QueueBind(q.Name, "", exchangeName, false, nil); err != nil {
		return "", fmt.Errorf("bind queue: %w", err)
	}
	return q.Name, nil
}

// reconnect replaces a dead connection. Callers hold no lock.
func (c *Client) reconnect(ctx context.Context) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return nil
		}
		c.logger.WarnContext(ctx, "AMQP reconnect failed", log.FieldError, err, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return fmt.Errorf("reconnect: gave up after %d attempts", maxRetries)
}

func (c *Client) currentChannel() channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

// PublishReload publishes a reload request
func (c *Client) PublishReload(ctx context.Context, msg *ReloadMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish reload: %w", errCircuitOpen)
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		ch := c.currentChannel()
		if ch == nil {
			if lastErr = c.reconnect(ctx); lastErr != nil {
				c.recordFailure()
				continue
			}
			if ch = c.currentChannel(); ch == nil {
				lastErr = amqp091.ErrClosed
				c.recordFailure()
				continue
			}
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		lastErr = ch.PublishWithContext(
			pubCtx,
			c.exchangeName, // exchange
			"",             // routing key, ignored by fanout
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Transient,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		cancel()
		if lastErr == nil {
			c.recordSuccess()
			c.logger.InfoContext(ctx, "Published reload message",
				log.FieldReason, msg.Reason,
				log.FieldVersion, msg.Version,
				"exchange", c.exchangeName)
			return nil
		}

		c.recordFailure()
		if !isConnectionError(lastErr) {
			break
		}
	}
	return fmt.Errorf("publish message: %w", lastErr)
}

// ReloadHandler processes one reload request. An error requeues the message.
type ReloadHandler func(ctx context.Context, msg *ReloadMessage) error

// ConsumeReload consumes reload messages until ctx is done, reconnecting
// when the broker drops the channel. Each connection gets a fresh queue,
// so reloads published while disconnected are not replayed.
func (c *Client) ConsumeReload(ctx context.Context, handler ReloadHandler) error {
	for {
		ch := c.currentChannel()
		if ch == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		queue, err := declareConsumerQueue(ch, c.exchangeName, c.queuePrefix)
		if err != nil {
			return fmt.Errorf("setup queue: %w", err)
		}

		msgs, err := ch.Consume(
			queue, // queue
			"",    // consumer
			false, // auto-ack (we want manual ack)
			true,  // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("start consuming: %w", err)
		}

		c.logger.InfoContext(ctx, "Started consuming reload messages", "queue", queue)

		if err := c.drain(ctx, msgs, handler); err != nil {
			return err
		}
		c.logger.WarnContext(ctx, "Delivery channel closed, reconnecting", "queue", queue)
	}
}

// drain handles deliveries until ctx is done (returns its error) or the
// delivery channel closes (returns nil).
func (c *Client) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler ReloadHandler) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", log.FieldReason, ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler ReloadHandler) {
	msg, err := ReloadMessageFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
		delivery.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle reload message",
			log.FieldError, err,
			log.FieldReason, msg.Reason)
		delivery.Nack(false, !delivery.Redelivered) // one retry, then drop
		return
	}

	delivery.Ack(false)
	c.logger.InfoContext(ctx, "Processed reload message",
		log.FieldReason, msg.Reason,
		log.FieldVersion, msg.Version)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
