package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewMessageDefaultsTimestamp(t *testing.T) {
	before := time.Now()
	m := NewMessage("1", "", "hi", nil)
	if m.Timestamp.Before(before) {
		t.Fatalf("expected timestamp at or after %v, got %v", before, m.Timestamp)
	}
}

func TestCloneDoesNotShareMedia(t *testing.T) {
	m := NewMessage("555", "", "hi", []string{"https://a/1.jpg"})
	c := m.WithDestination("7")
	c.Media[0] = "changed"

	if m.Media[0] != "https://a/1.jpg" {
		t.Fatalf("clone mutated original media: %v", m.Media)
	}
	if m.Destination != "" {
		t.Fatalf("original destination changed to %q", m.Destination)
	}
	if c.Destination != "7" {
		t.Fatalf("expected destination 7, got %q", c.Destination)
	}
}

func TestInvalidMessageErrorMatching(t *testing.T) {
	err := fmt.Errorf("parse: %w", MissingField("text"))

	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected errors.Is ErrInvalidMessage")
	}
	var ime *InvalidMessageError
	if !errors.As(err, &ime) {
		t.Fatalf("expected errors.As InvalidMessageError")
	}
	if ime.Field != "text" {
		t.Fatalf("expected field text, got %q", ime.Field)
	}
}
