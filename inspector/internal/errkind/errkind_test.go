package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := New(Transport, "loader: fetch", errors.New("connection refused"))
	wrapped := fmt.Errorf("inspector: load url: %w", base)

	if got := KindOf(wrapped); got != Transport {
		t.Errorf("KindOf: got %v, want %v", got, Transport)
	}
	if !Is(wrapped, Transport) {
		t.Error("Is(Transport) should be true")
	}
	if Is(wrapped, Parse) {
		t.Error("Is(Parse) should be false")
	}
}

func TestKindOf_Plain(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Unknown {
		t.Errorf("KindOf: got %v, want unknown", got)
	}
	if Is(nil, Unknown) {
		t.Error("nil error should never match")
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("outer: %w", Errorf(Validation, "loader: validate", "Please enter a valid URL"))
	if got := Message(err); got != "Please enter a valid URL" {
		t.Errorf("Message: got %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message plain: got %q", got)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Validation: "validation",
		Transport:  "transport",
		Parse:      "parse",
		FileRead:   "file_read",
		Extraction: "extraction",
		NoSnapshot: "no_snapshot",
		Unknown:    "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String(): got %q, want %q", k, got, want)
		}
	}
}
