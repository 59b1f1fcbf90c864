package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewRequestID tags one inbound webhook call. ULIDs sort by time, which keeps log search simple.
func NewRequestID() string {
	return "req_" + newULID()
}

// NewEventID identifies a queued inbound event.
func NewEventID() string {
	return "evt_" + newULID()
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(NowUTC()), rand.Reader).String()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
