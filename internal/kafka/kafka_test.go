package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-eventgrid/internal/config"
	"ms-eventgrid/internal/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestTicketPublisher(t *testing.T) {
	writer := &fakeWriter{}
	topics := config.TopicConfig{
		TicketBooked:    "booked",
		PaymentUpdated:  "payments",
		TicketCheckedIn: "checkins",
	}
	publisher := NewTicketPublisher(&Producer{Writer: writer}, topics)
	at := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	publisher.Now = func() time.Time { return at }

	ticket := models.Ticket{
		ID:            "t1",
		Identifier:    "TKT-Gala-00001",
		EventID:       "e1",
		BuyerEmail:    "a@example.com",
		PaymentStatus: models.PaymentCompleted,
		CheckedIn:     true,
	}
	ctx := context.Background()
	require.NoError(t, publisher.TicketBooked(ctx, ticket))
	require.NoError(t, publisher.PaymentUpdated(ctx, ticket))
	require.NoError(t, publisher.TicketCheckedIn(ctx, ticket))

	require.Len(t, writer.messages, 3)
	assert.Equal(t, "booked", writer.messages[0].Topic)
	assert.Equal(t, "payments", writer.messages[1].Topic)
	assert.Equal(t, "checkins", writer.messages[2].Topic)

	var evt models.TicketEvent
	require.NoError(t, json.Unmarshal(writer.messages[2].Value, &evt))
	assert.Equal(t, []byte("t1"), writer.messages[2].Key)
	assert.Equal(t, EventTicketCheckedIn, evt.Type)
	assert.Equal(t, "TKT-Gala-00001", evt.Identifier)
	assert.True(t, evt.CheckedIn)
	assert.Equal(t, at, evt.OccurredAt)
}

func TestProducerWriteError(t *testing.T) {
	producer := &Producer{Writer: &fakeWriter{err: errors.New("leader not available")}}
	err := producer.Publish(context.Background(), "topic", "key", map[string]string{"a": "b"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestConsumerStart(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{
		{Topic: "in", Offset: 1, Value: []byte("ok")},
		{Topic: "in", Offset: 2, Value: []byte("bad")},
		{Topic: "in", Offset: 3, Value: []byte("ok")},
	}}
	consumer := &Consumer{Reader: reader, Topic: "in"}

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	done := make(chan error)
	go func() {
		done <- consumer.Start(ctx, func(_ context.Context, msg kafka.Message) error {
			handled = append(handled, string(msg.Value))
			if len(handled) == 3 {
				cancel()
			}
			if string(msg.Value) == "bad" {
				return errors.New("poison message")
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Equal(t, []string{"ok", "bad", "ok"}, handled)
	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, []int64{1, 2, 3}, reader.committed, "failed messages are committed too")
}
