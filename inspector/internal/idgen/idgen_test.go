package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a == b {
		t.Fatalf("duplicate ids: %s", a)
	}
	u, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("parse %q: %v", a, err)
	}
	if u.Version() != 7 {
		t.Errorf("version: got %d, want 7", u.Version())
	}
	if a > b {
		t.Errorf("ids not time-sortable: %s > %s", a, b)
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("srf_", UUIDv7())()
	if !strings.HasPrefix(id, "srf_") {
		t.Errorf("missing prefix: %s", id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, "srf_")); err != nil {
		t.Errorf("suffix is not a uuid: %v", err)
	}
}
