package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeDispatch Exchange = "leadmailer.dispatch"
	ExchangeLeads    Exchange = "leadmailer.leads"
	ExchangeDLQ      Exchange = "leadmailer.dlq"
)

// Queues.
const (
	QueueDispatchOutcomes Queue = "dispatch.outcomes"
	QueueDispatchFailures Queue = "dispatch.failures"
	QueueLeadsQualify     Queue = "leads.qualify"
	QueueDLQLeads         Queue = "dlq.leads"
)

// Routing keys.
const (
	RoutingKeyEmailSent   RoutingKey = "email.sent"
	RoutingKeyEmailFailed RoutingKey = "email.failed"
	RoutingKeyLeadCreated RoutingKey = "lead.created"
	RoutingKeyDLQLeads    RoutingKey = "leads"
)

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// bindings — вся маршрутизация. dispatch.outcomes получает оба события
// доставки, dispatch.failures только неудачи (для алертов).
var bindings = []binding{
	{QueueDispatchOutcomes, "email.*", ExchangeDispatch},
	{QueueDispatchFailures, RoutingKeyEmailFailed, ExchangeDispatch},
	{QueueLeadsQualify, RoutingKeyLeadCreated, ExchangeLeads},
	{QueueDLQLeads, RoutingKeyDLQLeads, ExchangeDLQ},
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeDispatch, amqp.ExchangeTopic},
		{ExchangeLeads, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueDispatchOutcomes, nil},
		{QueueDispatchFailures, nil},
		// leads.qualify — сообщения, которые нельзя обработать, уходят в DLQ
		{QueueLeadsQualify, queueArgs()},
		{QueueDLQLeads, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func queueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQLeads),
	}
}

func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
