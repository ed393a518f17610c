package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"freight/internal/domain"
)

// Publisher pushes accepted checkpoint events onto a Kafka topic for
// downstream analytics. Publishing is best-effort and happens after the
// database transaction commits; a failed publish never fails the submission.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Publisher{writer: w}
}

// checkpointMessage is the wire shape of a published checkpoint.
type checkpointMessage struct {
	ID            string   `json:"id"`
	TripID        string   `json:"trip_id"`
	EventType     string   `json:"event_type"`
	StopID        *string  `json:"stop_id,omitempty"`
	StopLabel     *string  `json:"stop_label,omitempty"`
	OdometerMiles *float64 `json:"odometer_miles,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	RecordedAt    string   `json:"recorded_at"`
}

// PublishCheckpoint publishes one accepted checkpoint, keyed by trip ID so a
// trip's events stay ordered within a partition.
func (p *Publisher) PublishCheckpoint(event *domain.TripEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg := checkpointMessage{
		ID:            event.ID,
		TripID:        event.TripID,
		EventType:     string(event.Type),
		StopID:        event.StopID,
		StopLabel:     event.StopLabel,
		OdometerMiles: event.OdometerMiles,
		Lat:           event.Lat,
		Lon:           event.Lon,
		RecordedAt:    event.RecordedAt.UTC().Format(time.RFC3339),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.TripID), Value: b})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
