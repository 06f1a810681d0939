package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
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
	dialTimeout    = 3 * time.Second
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrConnecting is returned instead of waiting while another caller dials the broker.
	ErrConnecting = errors.New("AMQP connection in progress")
)

// Publisher sends transaction events to a topic exchange. The connection is
// opened lazily and re-dialled after connection failures; repeated failures
// open a circuit breaker so a dead broker does not slow every request.
type Publisher struct {
	url          string
	exchangeName string

	// dialTimeout bounds the TCP connect and AMQP handshake.
	dialTimeout time.Duration
	dialing     int32

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  int64 // unix nanoseconds
}

func NewPublisher(url, exchangeName string) (*Publisher, error) {
	if _, err := amqp091.ParseURI(url); err != nil {
		return nil, fmt.Errorf("parse AMQP URL: %w", err)
	}
	if exchangeName == "" {
		return nil, errors.New("exchange name is required")
	}
	return &Publisher{url: url, exchangeName: exchangeName, dialTimeout: dialTimeout}, nil
}

// Connect dials the broker, retrying with exponential backoff up to attempts times.
func (p *Publisher) Connect(ctx context.Context, attempts int) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		p.mu.Lock()
		_, err = p.ensureChannel()
		p.mu.Unlock()
		if err == nil {
			p.recordSuccess()
			slog.InfoContext(ctx, "Connected to AMQP broker", "exchange", p.exchangeName)
			return nil
		}

		if attempt == attempts-1 {
			break
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection failed, retrying",
			"attempt", attempt+1,
			"retry_in", wait,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	p.recordFailure()
	return fmt.Errorf("connect AMQP after %d attempts: %w", attempts, err)
}

// ensureChannel must be called with p.mu held.
func (p *Publisher) ensureChannel() (*amqp091.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	p.resetLocked()

	timeout := p.dialTimeout
	if timeout <= 0 {
		timeout = dialTimeout
	}
	atomic.StoreInt32(&p.dialing, 1)
	conn, err := amqp091.DialConfig(p.url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(timeout),
	})
	atomic.StoreInt32(&p.dialing, 0)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
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

	p.conn, p.channel = conn, channel
	return channel, nil
}

func (p *Publisher) resetLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// PublishTransactionEvent publishes event under its routing key.
func (p *Publisher) PublishTransactionEvent(ctx context.Context, event TransactionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", event.RoutingKey(), ErrCircuitOpen)
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if !p.mu.TryLock() {
		if atomic.LoadInt32(&p.dialing) == 1 {
			return fmt.Errorf("publish %s: %w", event.RoutingKey(), ErrConnecting)
		}
		p.mu.Lock()
	}
	defer p.mu.Unlock()

	channel, err := p.ensureChannel()
	if err != nil {
		p.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,     // exchange
		event.RoutingKey(), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		p.recordFailure()
		if isConnectionError(err) {
			p.resetLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	p.recordSuccess()

	slog.DebugContext(ctx, "Published transaction event",
		"event", event.Event,
		"id", event.ID,
		"exchange", p.exchangeName,
		"routing_key", event.RoutingKey())

	return nil
}

func (p *Publisher) isCircuitOpen() bool {
	if atomic.LoadInt32(&p.state) != StateOpen {
		return false
	}
	if time.Since(time.Unix(0, atomic.LoadInt64(&p.lastFailure))) > openTimeout {
		atomic.CompareAndSwapInt32(&p.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (p *Publisher) recordFailure() {
	n := atomic.AddInt64(&p.failureCount, 1)
	atomic.StoreInt64(&p.lastFailure, time.Now().UnixNano())
	if n >= maxFailures || atomic.LoadInt32(&p.state) == StateHalfOpen {
		atomic.StoreInt32(&p.state, StateOpen)
	}
}

func (p *Publisher) recordSuccess() {
	atomic.StoreInt64(&p.failureCount, 0)
	atomic.StoreInt32(&p.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at maxBackoff.
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
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
