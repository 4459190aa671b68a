package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("inv")
	b := New("inv")
	if !strings.HasPrefix(a, "inv-") {
		t.Fatalf("expected inv- prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}
