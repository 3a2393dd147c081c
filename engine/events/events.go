// Package events publishes load lifecycle events to logs, an MQTT broker or Postgres.
package events

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage an Event reports.
type State string

const (
	// StateLoading is published when an attempt starts.
	StateLoading State = "loading"

	// StateRetrying is published when a failed attempt will be retried.
	StateRetrying State = "retrying"

	// StateLoaded is published when an attempt succeeds.
	StateLoaded State = "loaded"

	// StateFailed is published when a load gives up.
	StateFailed State = "failed"
)

// Event describes one step of a load.
type Event struct {
	// LoadID identifies the Start call the event belongs to.
	LoadID uuid.UUID `json:"load_id"`

	// AttemptID identifies the attempt within the load.
	AttemptID uuid.UUID `json:"attempt_id"`

	// Attempt is the zero-based attempt index.
	Attempt int `json:"attempt"`

	// State is the lifecycle stage.
	State State `json:"state"`

	// URI is the document being loaded.
	URI string `json:"uri"`

	// Error is the failure message for StateRetrying and StateFailed.
	Error string `json:"error,omitempty"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"ts"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	// Publish delivers one event.
	//
	// Parameters:
	//   - ctx: bounds the delivery
	//   - e: the event
	//
	// Returns:
	//   - error: error if the sink rejected the event
	Publish(ctx context.Context, e Event) error

	// Close releases the sink.
	//
	// Returns:
	//   - error: error if the sink could not be closed cleanly
	Close() error
}

// LogPublisher writes every event to the standard logger.
type LogPublisher struct{}

var _ Publisher = LogPublisher{}

// Publish logs e.
func (LogPublisher) Publish(_ context.Context, e Event) error {
	if e.Error != "" {
		log.Printf("[Events] load %s attempt %d %s %q: %s", e.LoadID, e.Attempt, e.State, e.URI, e.Error)
		return nil
	}
	log.Printf("[Events] load %s attempt %d %s %q", e.LoadID, e.Attempt, e.State, e.URI)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error {
	return nil
}

type multiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher fans every event out to several publishers. A failing sink does not stop
// delivery to the others.
//
// Parameters:
//   - publishers: the sinks, nil entries are skipped
//
// Returns:
//   - Publisher: the combined publisher
func NewMultiPublisher(publishers ...Publisher) Publisher {
	m := &multiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

func (m *multiPublisher) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
