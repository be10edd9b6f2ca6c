package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes domain events to ExchangeName.  It keeps one
// connection and channel open and re-dials lazily after the broker
// dropped them.  Failures are logged and returned so that callers can
// ignore them: an event is a notification about a committed change, never
// part of it.
//
// The mutex only guards the session pointer.  Dialing and publishing run
// outside it; while one caller dials, the others wait for that dial or for
// their own context, whichever ends first.
type Publisher struct {
	url  string
	log  *zap.Logger
	dial func(url string) (session, error)
	now  func() time.Time

	mu         sync.Mutex
	sess       session
	dialing    chan struct{} // closed when the dial in progress ends
	dialFailed time.Time     // last failed dial; redials wait redialAfter
}

// session is an open connection and channel to the broker.
type session interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
	Alive() bool
	Close() error
}

const (
	dialTimeout = 2 * time.Second
	redialAfter = 5 * time.Second
)

var errBrokerBackoff = errors.New("broker unavailable, waiting before redial")

// NewPublisher returns a Publisher for the broker at url.  No connection
// is made until the first Publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log.Named("publisher"), dial: dialAMQP, now: time.Now}
}

// Publish sends ev as a persistent JSON message routed by ev.RoutingKey().
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("routing_key", ev.RoutingKey()), zap.Error(err))
		return err
	}

	s, err := p.session(ctx)
	if err != nil {
		p.log.Warn("broker unavailable", zap.String("routing_key", ev.RoutingKey()), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    uuid.NewString(),
		Type:         ev.RoutingKey(),
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := s.Publish(ctx, ev.RoutingKey(), pub); err != nil {
		p.log.Warn("publish failed", zap.String("routing_key", ev.RoutingKey()), zap.Error(err))
		p.reset(s)
		return err
	}
	return nil
}

// session returns the open session, dialing when there is none.
func (p *Publisher) session(ctx context.Context) (session, error) {
	for {
		p.mu.Lock()
		if p.sess != nil && p.sess.Alive() {
			s := p.sess
			p.mu.Unlock()
			return s, nil
		}
		stale := p.sess
		p.sess = nil
		if wait := p.dialing; wait != nil {
			p.mu.Unlock()
			closeSession(stale)
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if !p.dialFailed.IsZero() && p.now().Sub(p.dialFailed) < redialAfter {
			p.mu.Unlock()
			closeSession(stale)
			return nil, errBrokerBackoff
		}
		done := make(chan struct{})
		p.dialing = done
		p.mu.Unlock()

		closeSession(stale)
		s, err := p.dial(p.url)

		p.mu.Lock()
		p.dialing = nil
		if err != nil {
			p.dialFailed = p.now()
		} else {
			p.dialFailed = time.Time{}
			p.sess = s
		}
		p.mu.Unlock()
		close(done)
		return s, err
	}
}

// reset drops s so that the next Publish dials again.  A session that was
// already replaced is only closed.
func (p *Publisher) reset(s session) {
	p.mu.Lock()
	if p.sess == s {
		p.sess = nil
	}
	p.mu.Unlock()
	closeSession(s)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	s := p.sess
	p.sess = nil
	p.mu.Unlock()
	closeSession(s)
	return nil
}

func closeSession(s session) {
	if s != nil {
		_ = s.Close()
	}
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// dialAMQP connects with a bounded dial and declares the exchange.
func dialAMQP(url string) (session, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &amqpSession{conn: conn, ch: ch}, nil
}

func (s *amqpSession) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	return s.ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
}

func (s *amqpSession) Alive() bool { return !s.ch.IsClosed() && !s.conn.IsClosed() }

func (s *amqpSession) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}

// declareExchange ensures the topic exchange exists (idempotent).  Durable
// so it survives broker restarts.
func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
