package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/services/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event is the envelope published to the account event queue.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Service publishes account events to RabbitMQ. Publishing is best-effort:
// errors are logged and returned, and callers are expected to ignore them
// rather than fail the request that produced the event.
type Service struct {
	config *config.EventsConfig
	logger *logging.Service

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: &cfg.Events,
		logger: logger,
	}
}

func (s *Service) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		s.logger.Error("failed to marshal event", zap.Error(err), zap.String("event_type", eventType))
		return err
	}

	channel, err := s.getChannel()
	if err != nil {
		s.logger.Warn("event publish skipped: broker unavailable",
			zap.Error(err),
			zap.String("event_type", eventType))
		return err
	}

	err = channel.PublishWithContext(ctx,
		"",             // default exchange
		s.config.Queue, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		s.logger.Error("failed to publish event", zap.Error(err), zap.String("event_type", eventType))
		s.reset()
		return err
	}

	s.logger.Debug("event published", zap.String("event_type", eventType))
	return nil
}

func (s *Service) getChannel() (*amqp.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil && !s.channel.IsClosed() {
		return s.channel, nil
	}

	conn, err := amqp.Dial(s.config.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}

	// Durable so events survive broker restarts. Declare is idempotent.
	if _, err := channel.QueueDeclare(s.config.Queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}

	s.conn = conn
	s.channel = channel
	return channel, nil
}

func (s *Service) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Service) Close() error {
	s.reset()
	return nil
}
