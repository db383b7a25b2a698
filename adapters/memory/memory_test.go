package memory

import (
	"testing"
)

// Requirement: Read returns what was last written; Clear is idempotent.
func TestStore(t *testing.T) {
	s := New()

	if got, err := s.Read(); err != nil || got != "" {
		t.Fatalf("fresh store Read() = %q, %v; want empty", got, err)
	}

	if err := s.Write("T"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, _ := s.Read(); got != "T" {
		t.Errorf("Read() = %q; want %q", got, "T")
	}

	for i := 0; i < 2; i++ {
		if err := s.Clear(); err != nil {
			t.Fatalf("Clear() #%d error = %v", i+1, err)
		}
	}
	if got, _ := s.Read(); got != "" {
		t.Errorf("Read() after Clear = %q; want empty", got)
	}
}
