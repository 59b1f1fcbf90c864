package router

import "testing"

func TestParseRelay(t *testing.T) {
	cases := []struct {
		text string
		want Relay
		ok   bool
	}{
		{`{"building":"42","text":"hello"}`, Relay{Building: "42", Text: "hello"}, true},
		{` {"text":"water off","building":"+15550001111","extra":1} `, Relay{Building: "+15550001111", Text: "water off"}, true},
		{`start`, Relay{}, false},
		{`{"building":"42"}`, Relay{}, false},
		{`{"text":"hello"}`, Relay{}, false},
		{`{"building":42,"text":"hello"}`, Relay{}, false},
		{`{"building":null,"text":"hello"}`, Relay{}, false},
		{`["building","text"]`, Relay{}, false},
		{`null`, Relay{}, false},
		{`{"building":"42","text":"hello"`, Relay{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseRelay(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseRelay(%q) = %+v, %v; want %+v, %v", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}
