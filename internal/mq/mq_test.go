package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/leadmailer/internal/domain"
)

func TestOutcomeRoute(t *testing.T) {
	msgType, key := outcomeRoute(domain.DispatchOutcome{Success: true})
	assert.Equal(t, MessageTypeEmailSent, msgType)
	assert.Equal(t, RoutingKeyEmailSent, key)

	msgType, key = outcomeRoute(domain.DispatchOutcome{Error: "bounced"})
	assert.Equal(t, MessageTypeEmailFailed, msgType)
	assert.Equal(t, RoutingKeyEmailFailed, key)
}

func TestNewMessage_OutcomePayload(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("BRT", -3*3600))
	outcome := domain.DispatchOutcome{LeadID: 7, TemplateID: 3, Email: "a@x.com", Success: true, At: at}

	msg, err := NewMessage(MessageTypeEmailSent, OutcomePayload{CycleID: "c-1", DispatchOutcome: outcome}, at)
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	var fields map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &fields))
	assert.Equal(t, "c-1", fields["cycle_id"])
	assert.Equal(t, float64(7), fields["lead_id"])
	assert.Equal(t, true, fields["success"])
	assert.NotContains(t, fields, "error")
}

func TestParsePayload(t *testing.T) {
	msg, err := NewMessage(MessageTypeLeadCreated, LeadCreatedPayload{LeadID: 42}, time.Now())
	require.NoError(t, err)

	// Конверт проходит через JSON, как при доставке
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	var decoded Message
	require.NoError(t, json.Unmarshal(body, &decoded))

	payload, err := ParsePayload[LeadCreatedPayload](&decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), payload.LeadID)
}

func TestPermanent(t *testing.T) {
	base := errors.New("lead not found")

	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, IsPermanent(errors.Join(errors.New("ctx"), Permanent(base))))
	assert.ErrorIs(t, Permanent(base), base)
	assert.False(t, IsPermanent(base))
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(bool) error { a.acked = true; return nil }

func (a *fakeAck) Nack(_, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func TestConsumer_HandleAndSettle(t *testing.T) {
	var handled []int64
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueueLeadsQualify,
		Handler: func(_ context.Context, msg *Message) error {
			p, err := ParsePayload[LeadCreatedPayload](msg)
			if err != nil {
				return Permanent(err)
			}
			handled = append(handled, p.LeadID)
			switch p.LeadID {
			case 0:
				return Permanent(errors.New("no lead id"))
			case 13:
				return errors.New("db unavailable")
			}
			return nil
		},
	})

	body := func(id int64) []byte {
		msg, err := NewMessage(MessageTypeLeadCreated, LeadCreatedPayload{LeadID: id}, time.Now())
		require.NoError(t, err)
		b, err := json.Marshal(msg)
		require.NoError(t, err)
		return b
	}

	tests := []struct {
		name     string
		body     []byte
		acked    bool
		requeued bool
	}{
		{"ok", body(1), true, false},
		{"transient", body(13), false, true},
		{"permanent", body(0), false, false},
		{"garbage", []byte("{not json"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			c.settle(ack, c.handle(context.Background(), tt.body))

			assert.Equal(t, tt.acked, ack.acked)
			assert.Equal(t, !tt.acked, ack.nacked)
			assert.Equal(t, tt.requeued, ack.requeued)
		})
	}

	assert.Equal(t, []int64{1, 13, 0}, handled)
}

func TestTopologyBindings(t *testing.T) {
	queues := map[Queue]bool{}
	for _, b := range bindings {
		queues[b.queue] = true
	}
	for _, q := range []Queue{QueueDispatchOutcomes, QueueDispatchFailures, QueueLeadsQualify, QueueDLQLeads} {
		assert.True(t, queues[q], "queue %s must be bound", q)
	}
	assert.Equal(t, string(ExchangeDLQ), queueArgs()["x-dead-letter-exchange"])
}
