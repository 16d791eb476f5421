package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/segmentio/kafka-go"
)

const EventOrderPlaced = "OrderPlaced"

var (
	ErrProducerClosed = errors.New("producer is closed")
	ErrBufferFull     = errors.New("producer buffer is full")
)

// Envelope конверт события в топике заказов.
type Envelope struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Payload    *models.OrderView `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer асинхронно отправляет события в kafka через буферизованный канал.
// Публикация не блокирует оформление заказа: при переполнении буфера событие отбрасывается с ошибкой.
type Producer struct {
	log          *slog.Logger
	w            messageWriter
	inbox        chan kafka.Message
	done         chan struct{}
	writeTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewProducer(log *slog.Logger, brokers []string, topic string, buf int) *Producer {
	return newProducer(log, &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf)
}

func newProducer(log *slog.Logger, w messageWriter, buf int) *Producer {
	if buf < 1 {
		buf = 1
	}
	return &Producer{
		log:          log,
		w:            w,
		inbox:        make(chan kafka.Message, buf),
		done:         make(chan struct{}),
		writeTimeout: 5 * time.Second,
	}
}

// Start запускает горутину отправки. Повторный вызов ничего не делает.
func (p *Producer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	go func() {
		defer close(p.done)
		for m := range p.inbox {
			p.write(m)
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	const op = "events.Producer.write"

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("failed to write event",
			slog.String("op", op), slog.String("key", string(m.Key)), slog.Any("error", err))
	}
}

// PublishOrderPlaced ставит событие OrderPlaced в очередь отправки. Ключ сообщения - id пользователя.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *models.OrderView) error {
	const op = "events.Producer.PublishOrderPlaced"

	value, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  EventOrderPlaced,
		OccurredAt: time.Now().UTC(),
		Payload:    order,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal event: %w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(order.UserID, 10)),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("%s: %w", op, ErrProducerClosed)
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return fmt.Errorf("%s: %w", op, ErrBufferFull)
	}
}

// Close досылает оставшиеся в буфере события и закрывает writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	close(p.inbox)
	p.mu.Unlock()

	if started {
		<-p.done
	}
	return p.w.Close()
}
