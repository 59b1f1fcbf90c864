package router

import (
	"bytes"
	"encoding/json"
)

// Relay is a chat message asking for text to be forwarded to a building's number.
type Relay struct {
	Building string
	Text     string
}

// ParseRelay reports whether text is a relay request: a JSON object whose
// "building" and "text" members are both strings. Anything else, including
// valid JSON of another shape, is not a relay and ok is false.
func ParseRelay(text string) (r Relay, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil || fields == nil {
		return Relay{}, false
	}
	rawBuilding, hasBuilding := fields["building"]
	rawText, hasText := fields["text"]
	if !hasBuilding || !hasText || isNull(rawBuilding) || isNull(rawText) {
		return Relay{}, false
	}
	if err := json.Unmarshal(rawBuilding, &r.Building); err != nil {
		return Relay{}, false
	}
	if err := json.Unmarshal(rawText, &r.Text); err != nil {
		return Relay{}, false
	}
	return r, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
