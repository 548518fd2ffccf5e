package events

import "time"

// Event is one entry of the dataset lifecycle log
type Event struct {
	Type       string    `json:"type"`
	Stream     string    `json:"stream"`
	Sequence   int       `json:"sequence"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// EventHandler reacts to published events
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore records events per stream and fans them out to subscribers
type EventStore interface {
	// Publish stamps the event with the next sequence number of its stream
	Publish(event Event) (Event, error)
	// History returns the retained events of stream with a sequence above afterSequence
	History(stream string, afterSequence int) []Event
	// Latest returns the most recent event of stream
	Latest(stream string) (Event, bool)
	Subscribe(handler EventHandler, eventTypes ...string)
}
