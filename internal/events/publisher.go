// Package events publishes domain events (uploads, downloads, deletions,
// account changes) for downstream consumers. Publishing is best-effort:
// failures are logged by callers and never fail the originating request.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Event types.
const (
	TypeExamUploaded       = "portal.exam.uploaded"
	TypeExamDownloaded     = "portal.exam.downloaded"
	TypeExamDeleted        = "portal.exam.deleted"
	TypeSheetUploaded      = "portal.cheat_sheet.uploaded"
	TypeSheetDownloaded    = "portal.cheat_sheet.downloaded"
	TypeSheetDeleted       = "portal.cheat_sheet.deleted"
	TypeUserRoleChanged    = "portal.user.role_changed"
	TypeUserFeeChanged     = "portal.user.fee_changed"
	TypeUserDeleted        = "portal.user.deleted"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	ActorID   uint        `json:"actor_id"`
	Data      interface{} `json:"data,omitempty"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(eventType string, actorID uint, data interface{}) error
	Close() error
}

// WatermillPublisher publishes events through a watermill backend.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewGoChannelPublisher returns an in-process publisher, used when no
// broker is configured.
func NewGoChannelPublisher(topic string, logger *slog.Logger) *WatermillPublisher {
	pub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return &WatermillPublisher{publisher: pub, topic: topic}
}

// NewKafkaPublisher returns a Kafka-backed publisher.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return &WatermillPublisher{publisher: pub, topic: topic}, nil
}

func (p *WatermillPublisher) Publish(eventType string, actorID uint, data interface{}) error {
	event := Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    "portal-service",
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", eventType)
	return p.publisher.Publish(p.topic, msg)
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// MockPublisher records events in memory for tests.
type MockPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(eventType string, actorID uint, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    "portal-service",
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		Data:      data,
	})
	return nil
}

func (p *MockPublisher) Close() error { return nil }

// PublishedEvents returns a copy of everything published so far.
func (p *MockPublisher) PublishedEvents() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Clear discards recorded events.
func (p *MockPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
