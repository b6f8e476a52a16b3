package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mediumplus/app/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by post ID.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.Named("kafka"),
		now:    time.Now,
	}
}

func (p *KafkaPublisher) PublishCommentSubmitted(ctx context.Context, comment *models.Comment) error {
	event := NewCommentSubmittedEvent(comment, p.now().UTC())
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.logger.Debug("sending kafka message",
		zap.String("topic", p.topic),
		zap.String("event_id", event.EventID))

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.PostID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
