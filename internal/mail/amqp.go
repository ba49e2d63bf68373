package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeySend is the routing key for messages that should be delivered as-is.
const RoutingKeySend = "mail.send"

// Publisher hands messages to a RabbitMQ topic exchange for a mail worker to deliver.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Send publishes msg as persistent JSON.
func (p *Publisher) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKeySend, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// WorkerConfig describes the queue a Worker consumes from.
type WorkerConfig struct {
	RabbitURL string
	Exchange  string
	Queue     string
	Prefetch  int
	Consumer  string
}

// Worker consumes queued messages and delivers them with a Mailer.
type Worker struct {
	cfg    WorkerConfig
	mailer Mailer
	log    *slog.Logger
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func NewWorker(cfg WorkerConfig, mailer Mailer, log *slog.Logger) *Worker {
	return &Worker{cfg: cfg, mailer: mailer, log: log}
}

// Connect declares the exchange, queue and binding.
func (w *Worker) Connect() error {
	conn, err := amqp.Dial(w.cfg.RabbitURL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(w.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(w.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(w.cfg.Queue, "mail.*", w.cfg.Exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}
	prefetch := w.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 4
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	w.conn = conn
	w.ch = ch
	return nil
}

func (w *Worker) Close() {
	if w.ch != nil {
		_ = w.ch.Close()
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.ch.ConsumeWithContext(ctx, w.cfg.Queue, w.cfg.Consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.settle(ctx, &d, d.RoutingKey, d.Body)
		}
	}
}

// acknowledger is the part of amqp.Delivery the worker settles with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle handles one delivery and acks it, or drops it when sending fails.
// Failed deliveries are never requeued.
func (w *Worker) settle(ctx context.Context, d acknowledger, key string, body []byte) {
	if err := w.Handle(ctx, key, body); err != nil {
		w.log.Error("mail delivery failed, dropping", "key", key, "malformed", errors.Is(err, errMalformed), "error", err)
		if err := d.Nack(false, false); err != nil {
			w.log.Error("nack failed", "key", key, "error", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		w.log.Error("ack failed", "key", key, "error", err)
	}
}

var errMalformed = errors.New("malformed mail payload")

// Handle decodes one delivery and sends it.
func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case RoutingKeySend:
		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil || msg.To == "" {
			return errMalformed
		}
		return w.mailer.Send(ctx, msg)
	default:
		w.log.Warn("skip unknown mail key", "key", key)
		return nil
	}
}
