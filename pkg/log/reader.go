package log

import (
	"errors"
	"io"
	"os"
)

// Filter selects events when reading back a captured stream.
// Zero-value fields match everything.
type Filter struct {
	// ConnectionID limits results to one transport instance.
	ConnectionID string

	// Category limits results to one event category.
	Category *Category

	// Layer limits results to one layer.
	Layer *Layer
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	return true
}

// ReadEvents reads all events from a CBOR event stream, applying the
// filter. Reading stops at EOF; a truncated trailing record is
// reported as an error along with the events read so far.
func ReadEvents(r io.Reader, filter Filter) ([]Event, error) {
	dec := NewDecoder(r)
	var events []Event
	for {
		var event Event
		if err := dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		if filter.Matches(event) {
			events = append(events, event)
		}
	}
}

// ReadEventsFile reads all events from a log file written by a
// FileLogger.
func ReadEventsFile(path string, filter Filter) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEvents(f, filter)
}
