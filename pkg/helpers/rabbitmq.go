package helpers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher wraps an AMQP channel and queue for publishing messages.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
	AppID string
}

// NewRabbitPublisher dials url and declares the durable queue it publishes to.
func NewRabbitPublisher(url, queue, appID string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue, AppID: appID}, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON publishes a persistent JSON message to the queue. messageID is
// carried as the AMQP message id so consumers can correlate with a run.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, messageID string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    messageID,
			AppId:        p.AppID,
			Body:         b,
		},
	)
}

// LazyRabbitPublisher dials on the first publish, so constructing it touches no network.
type LazyRabbitPublisher struct {
	URL   string
	Queue string
	AppID string

	mu  sync.Mutex
	pub *RabbitPublisher
}

func NewLazyRabbitPublisher(url, queue, appID string) *LazyRabbitPublisher {
	return &LazyRabbitPublisher{URL: url, Queue: queue, AppID: appID}
}

func (l *LazyRabbitPublisher) PublishJSON(ctx context.Context, messageID string, body any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pub == nil {
		pub, err := NewRabbitPublisher(l.URL, l.Queue, l.AppID)
		if err != nil {
			return err
		}
		l.pub = pub
	}
	return l.pub.PublishJSON(ctx, messageID, body)
}

func (l *LazyRabbitPublisher) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pub.Close()
	l.pub = nil
}
