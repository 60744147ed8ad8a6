package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rehber/rehber/internal/config"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) snapshot() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...)
}

func TestKafkaShipperRoutesByEventType(t *testing.T) {
	defer goleak.VerifyNone(t)

	contacts, audit := &fakeWriter{}, &fakeWriter{}
	s := newKafkaShipper(config.KafkaConfig{Enabled: true, QueueCapacity: 8}, contacts, audit)
	s.Start()

	s.Publish(ContactEvent{Type: ContactCreated, ContactID: "c1", Name: "Ali"})
	s.Publish(RequestAuditEvent{RequestID: "r1", Method: "GET", Route: "/api/contacts", Status: 200})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	got := contacts.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "c1", string(got[0].Key))

	var ev map[string]any
	require.NoError(t, json.Unmarshal(got[0].Value, &ev))
	assert.Equal(t, "contact.created", ev["type"])
	assert.NotEmpty(t, ev["@timestamp"])

	require.Len(t, audit.snapshot(), 1)
	assert.True(t, contacts.closed)
	assert.True(t, audit.closed)

	sent, dropped := s.Counts()
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, dropped)
}

func TestKafkaShipperDropsWhenFull(t *testing.T) {
	s := newKafkaShipper(config.KafkaConfig{Enabled: true, QueueCapacity: 1}, &fakeWriter{}, nil)
	// not started: the queue fills after one event
	s.Publish(ContactEvent{Type: ContactDeleted})
	s.Publish(ContactEvent{Type: ContactDeleted})

	_, dropped := s.Counts()
	assert.Equal(t, 1, dropped)
}

func TestKafkaShipperDisabledIsInert(t *testing.T) {
	s, err := NewKafkaShipper(config.KafkaConfig{})
	require.NoError(t, err)
	s.Start()
	s.Publish(ContactEvent{Type: ContactCreated})
	s.Stop(context.Background())

	sent, dropped := s.Counts()
	assert.Zero(t, sent)
	assert.Zero(t, dropped)
}

func TestNewKafkaShipperRequiresBrokers(t *testing.T) {
	_, err := NewKafkaShipper(config.KafkaConfig{Enabled: true})
	assert.Error(t, err)
}
