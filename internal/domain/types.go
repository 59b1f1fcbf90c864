package domain

import (
	"errors"
	"fmt"
	"time"
)

// Message is the provider-neutral value passed between providers and the router.
// Treat it as immutable; use Clone before changing a copy that is sent more than once.
type Message struct {
	Source      string
	Destination string
	Text        string
	Media       []string
	Timestamp   time.Time
}

// NewMessage builds a Message stamped with the current time.
func NewMessage(source, destination, text string, media []string) Message {
	return Message{
		Source:      source,
		Destination: destination,
		Text:        text,
		Media:       media,
		Timestamp:   time.Now(),
	}
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	out := m
	if m.Media != nil {
		out.Media = append([]string(nil), m.Media...)
	}
	return out
}

// WithDestination returns a clone of m addressed to destination.
func (m Message) WithDestination(destination string) Message {
	out := m.Clone()
	out.Destination = destination
	return out
}

func (m Message) String() string {
	return fmt.Sprintf("Message(text=%q, media=%v, destination=%s, source=%s, timestamp=%s)",
		m.Text, m.Media, m.Destination, m.Source, m.Timestamp.Format(time.RFC3339))
}

var ErrInvalidMessage = errors.New("invalid message")

// InvalidMessageError reports an inbound payload missing a required field.
type InvalidMessageError struct {
	Field string
	Err   error
}

func (e *InvalidMessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing parameter %q in request data: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("missing parameter %q in request data", e.Field)
}

func (e *InvalidMessageError) Is(target error) bool { return target == ErrInvalidMessage }

func (e *InvalidMessageError) Unwrap() error { return e.Err }

// MissingField is shorthand for an InvalidMessageError naming field.
func MissingField(field string) error {
	return &InvalidMessageError{Field: field}
}
