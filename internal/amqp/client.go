// Package amqp publishes committed mutations to a RabbitMQ direct exchange,
// one routing key per mutation kind, and can tail them back.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"simplebudget/internal/events"
	"simplebudget/internal/log"
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
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var ErrCircuitOpen = errors.New("amqp: circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	logger       *log.Logger

	mu          sync.Mutex
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	lastFailure time.Time

	state        int32
	failureCount int64
}

var _ events.Sink = (*Client)(nil)

// NewClient prepares a publisher. The connection is opened lazily on the
// first publish, or eagerly with Connect.
func NewClient(url, exchangeName string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		url:          url,
		exchangeName: exchangeName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
}

func (c *Client) getLogger() *log.Logger {
	if c.logger == nil {
		return log.Discard()
	}
	return c.logger
}

// Connect dials the broker, retrying connection errors with exponential
// backoff up to attempts times.
func (c *Client) Connect(ctx context.Context, attempts int) error {
	for attempt := 0; ; attempt++ {
		_, err := c.ensureChannel()
		if err == nil {
			return nil
		}
		if attempt+1 >= attempts || !isConnectionError(err) {
			return err
		}
		wait := exponentialBackoff(attempt)
		c.getLogger().WarnContext(ctx, "AMQP connect failed, retrying", "attempt", attempt+1, "backoff", wait, log.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return channel, nil
}

// Publish sends m as persistent JSON with the mutation kind as routing key.
func (c *Client) Publish(ctx context.Context, m events.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	msg, err := publishing(m)
	if err != nil {
		return err
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		m.Kind,         // routing key
		false,          // mandatory
		false,          // immediate
		msg,
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.getLogger().DebugContext(ctx, "Published mutation event",
		log.FieldOperation, m.Kind,
		log.FieldBudgetID, m.BudgetID,
		log.FieldTargetID, m.TargetID,
		"exchange", c.exchangeName)
	return nil
}

// publishing builds the persistent JSON message for m.
func publishing(m events.Mutation) (amqp091.Publishing, error) {
	if m.Kind == "" {
		return amqp091.Publishing{}, errors.New("mutation without kind")
	}
	body, err := m.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    m.Timestamp,
		Body:         body,
	}, nil
}

// Consume binds a private queue to the given kinds and hands every event to
// handler until ctx is done. Handler errors requeue the delivery once.
func (c *Client) Consume(ctx context.Context, kinds []string, handler func(events.Mutation) error) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	q, err := channel.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, kind := range kinds {
		if err := channel.QueueBind(q.Name, kind, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", kind, err)
		}
	}

	msgs, err := channel.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.getLogger().InfoContext(ctx, "Started consuming mutation events", "queue", q.Name, "kinds", len(kinds))

	for {
		select {
		case <-ctx.Done():
			c.getLogger().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			switch c.dispatch(ctx, delivery.Body, delivery.Redelivered, handler) {
			case ack:
				_ = delivery.Ack(false)
			case requeue:
				_ = delivery.Nack(false, true)
			default:
				_ = delivery.Nack(false, false)
			}
		}
	}
}

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

// dispatch decodes one delivery and runs handler on it. Undecodable bodies
// are dropped; a failing handler gets one redelivery.
func (c *Client) dispatch(ctx context.Context, body []byte, redelivered bool, handler func(events.Mutation) error) outcome {
	m, err := events.MutationFromJSON(body)
	if err != nil || m.Kind == "" {
		c.getLogger().ErrorContext(ctx, "Dropping undecodable message", log.FieldError, err)
		return drop
	}
	if err := handler(m); err != nil {
		c.getLogger().ErrorContext(ctx, "Failed to handle message",
			log.FieldOperation, m.Kind,
			log.FieldBudgetID, m.BudgetID,
			log.FieldError, err)
		if redelivered {
			return drop
		}
		return requeue
	}
	return ack
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.getLogger().Warn("AMQP circuit breaker opened", "failures", atomic.LoadInt64(&c.failureCount))
		}
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
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
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// closeLocked must be called with c.mu held.
func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
