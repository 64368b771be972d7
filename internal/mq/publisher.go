package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/leadmailer/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeEmailSent   MessageType = "email.sent"
	MessageTypeEmailFailed MessageType = "email.failed"
	MessageTypeLeadCreated MessageType = "lead.created"
)

// Message — конверт сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// OutcomePayload — событие доставки письма.
type OutcomePayload struct {
	CycleID string `json:"cycle_id"`
	domain.DispatchOutcome
}

// LeadCreatedPayload — запрос на квалификацию лида.
type LeadCreatedPayload struct {
	LeadID int64 `json:"lead_id"`
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// NewMessage упаковывает payload в конверт с новым ID.
func NewMessage(msgType MessageType, payload any, at time.Time) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   body,
		Timestamp: at.UTC(),
	}, nil
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishOutcome публикует результат отправки пары (lead, template).
func (p *Publisher) PublishOutcome(ctx context.Context, cycleID string, outcome domain.DispatchOutcome) error {
	msgType, routingKey := outcomeRoute(outcome)

	msg, err := NewMessage(msgType, OutcomePayload{CycleID: cycleID, DispatchOutcome: outcome}, outcome.At)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeDispatch, routingKey, msg)
}

// PublishLeadCreated ставит лида в очередь на квалификацию.
func (p *Publisher) PublishLeadCreated(ctx context.Context, leadID int64) error {
	msg, err := NewMessage(MessageTypeLeadCreated, LeadCreatedPayload{LeadID: leadID}, time.Now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeLeads, RoutingKeyLeadCreated, msg)
}

// outcomeRoute — событие email.sent, если письмо принято транспортом.
func outcomeRoute(o domain.DispatchOutcome) (MessageType, RoutingKey) {
	if o.Success {
		return MessageTypeEmailSent, RoutingKeyEmailSent
	}
	return MessageTypeEmailFailed, RoutingKeyEmailFailed
}
