package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/util/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaShipper forwards contact and request events to Kafka from a bounded
// queue. Publish never blocks: events are dropped when the queue is full.
type KafkaShipper struct {
	cfg       config.KafkaConfig
	wContacts messageWriter
	wAudit    messageWriter
	ch        chan any
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	mu      sync.Mutex
	dropped int
	sent    int
}

func NewKafkaShipper(cfg config.KafkaConfig) (*KafkaShipper, error) {
	if !cfg.Enabled {
		return &KafkaShipper{cfg: cfg, stop: make(chan struct{}), done: make(chan struct{})}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}

	newWriter := func(topic string) messageWriter {
		if topic == "" {
			return nil
		}
		return &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			Async:                  true,
			BatchTimeout:           cfg.FlushEvery,
			BatchSize:              cfg.BatchSize,
			WriteTimeout:           cfg.WriteTimeout,
			ErrorLogger:            kafka.LoggerFunc(logger.Errorf),
		}
	}
	return newKafkaShipper(cfg, newWriter(cfg.TopicContacts), newWriter(cfg.TopicAudit)), nil
}

func newKafkaShipper(cfg config.KafkaConfig, contacts, audit messageWriter) *KafkaShipper {
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 1024
	}
	return &KafkaShipper{
		cfg:       cfg,
		wContacts: contacts,
		wAudit:    audit,
		ch:        make(chan any, capacity),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *KafkaShipper) Start() {
	if !s.cfg.Enabled {
		return
	}
	go s.loop()
}

// Stop drains what is queued and closes the writers.
func (s *KafkaShipper) Stop(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
		select {
		case <-s.done:
		case <-ctx.Done():
			logger.Warnf("kafka shipper: stop deadline reached, %d events left", len(s.ch))
		}
		for _, w := range []messageWriter{s.wContacts, s.wAudit} {
			if w != nil {
				if err := w.Close(); err != nil {
					logger.Errorf("kafka shipper: close writer: %v", err)
				}
			}
		}
	})
}

func (s *KafkaShipper) Publish(ev any) {
	if !s.cfg.Enabled {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Counts reports sent and dropped events.
func (s *KafkaShipper) Counts() (sent, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent, s.dropped
}

func (s *KafkaShipper) loop() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.ch:
			s.ship(ev)
		case <-s.stop:
			for {
				select {
				case ev := <-s.ch:
					s.ship(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *KafkaShipper) ship(ev any) {
	if err := s.dispatch(ev); err != nil {
		logger.Warnf("kafka shipper: %v", err)
		return
	}
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
}

func (s *KafkaShipper) dispatch(ev any) error {
	now := time.Now().UTC()

	var (
		w   messageWriter
		key string
	)
	switch e := ev.(type) {
	case ContactEvent:
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		ev, w, key = e, s.wContacts, e.ContactID
	case RequestAuditEvent:
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		ev, w, key = e, s.wAudit, e.RequestID
	default:
		w = s.wAudit
	}
	if w == nil {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{Value: payload, Time: now}
	if key != "" {
		msg.Key = []byte(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout())
	defer cancel()
	return w.WriteMessages(ctx, msg)
}

func (s *KafkaShipper) writeTimeout() time.Duration {
	if s.cfg.WriteTimeout > 0 {
		return s.cfg.WriteTimeout
	}
	return 5 * time.Second
}
