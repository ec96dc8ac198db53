// Package publish emits run lifecycle events to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jonathan/content-curator/internal/types"
)

// EventRunCompleted is the event type of a finished run.
const EventRunCompleted = "run.completed"

const produceTimeout = 5 * time.Second

// RunEvent is the payload published when a run reaches a terminal state.
type RunEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	RunID         string    `json:"run_id"`
	Status        string    `json:"status"`
	State         string    `json:"state"`
	ScrapedCount  int       `json:"scraped_articles"`
	NewCount      int       `json:"new_articles"`
	SelectedTitle string    `json:"selected_title,omitempty"`
	SelectedLink  string    `json:"selected_link,omitempty"`
	OutputPath    string    `json:"output_path,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewRunEvent builds the run.completed event of res.
func NewRunEvent(res *types.RunResult, at time.Time) RunEvent {
	ev := RunEvent{
		EventID:       uuid.NewString(),
		EventType:     EventRunCompleted,
		RunID:         res.RunID,
		Status:        string(res.Status),
		State:         string(res.State),
		ScrapedCount:  res.ScrapedCount,
		NewCount:      res.NewCount,
		SelectedTitle: res.SelectedTitle,
		OutputPath:    res.ArtifactLocation,
		OccurredAt:    at.UTC(),
	}
	if res.Selected != nil {
		ev.SelectedLink = res.Selected.Link
	}
	return ev
}

// Publisher delivers run events.
type Publisher interface {
	PublishRun(ctx context.Context, ev RunEvent) error
	Close() error
}

// producer is the subset of *kgo.Client used here.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher publishes events keyed by run id.
type KafkaPublisher struct {
	client producer
	topic  string
	logger *logrus.Logger
}

// NewKafkaPublisher connects a producer to brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka publisher needs brokers and a topic")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("content-curator"),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// PublishRun implements Publisher.
func (p *KafkaPublisher) PublishRun(ctx context.Context, ev RunEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.RunID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "source", Value: []byte("curator")},
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, produceTimeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce %s: %w", ev.EventType, err)
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{"run_id": ev.RunID, "topic": p.topic}).Debug("Published run event")
	}
	return nil
}

// Close flushes and closes the client.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
