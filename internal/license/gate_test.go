package license

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGate_ClosedUntilSuccess(t *testing.T) {
	g := NewGate(Offline{})

	err := g.Check()
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Check before any key = %v, want ErrNotInitialized", err)
	}
	var le *Error
	if !errors.As(err, &le) || le.Attempted {
		t.Errorf("err = %#v, want unattempted *Error", err)
	}

	if status := g.Initialize("bad-key"); status == StatusOK {
		t.Fatal("bad-key returned StatusOK")
	}
	err = g.Check()
	if !errors.As(err, &le) || !le.Attempted || le.Status == StatusOK {
		t.Fatalf("Check after bad key = %#v, want attempted *Error with non-zero status", err)
	}

	good := EncodeOffline("hs-1", "org-1", time.Time{})
	if status := g.Initialize(good); status != StatusOK {
		t.Fatalf("Initialize(good) = %d, want 0", status)
	}
	if err := g.Check(); err != nil {
		t.Errorf("Check after success = %v", err)
	}
}

func TestGate_SuccessIsCached(t *testing.T) {
	var calls atomic.Int32
	g := NewGate(Func(func(key string) int {
		calls.Add(1)
		if key == "ok" {
			return StatusOK
		}
		return 7
	}))

	if s := g.Initialize("nope"); s != 7 {
		t.Fatalf("status = %d, want 7 surfaced verbatim", s)
	}
	if s := g.Initialize("ok"); s != StatusOK {
		t.Fatalf("status = %d, want 0", s)
	}
	if s := g.Initialize("nope"); s != StatusOK {
		t.Errorf("status after success = %d, want cached 0", s)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("validator calls = %d, want 2", got)
	}
	if got := g.Attempts(); got != 2 {
		t.Errorf("Attempts = %d, want 2", got)
	}
	if status, ok := g.Status(); !ok || status != StatusOK {
		t.Errorf("Status = %d, %v", status, ok)
	}
}

func TestGate_ConcurrentInitializeSerializes(t *testing.T) {
	var inFlight, maxInFlight, calls atomic.Int32
	g := NewGate(Func(func(string) int {
		calls.Add(1)
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return StatusOK
	}))

	var wg sync.WaitGroup
	statuses := make([]int, 16)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = g.Initialize("k")
		}(i)
	}
	wg.Wait()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent validations = %d, want 1", got)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("validator calls = %d, want 1", got)
	}
	for i, s := range statuses {
		if s != StatusOK {
			t.Errorf("caller %d saw status %d", i, s)
		}
	}
}

func TestOffline_Validate(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	v := Offline{Now: func() time.Time { return now }}

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"empty", "   ", StatusEmptyKey},
		{"not base64", "bad-key", StatusMalformedKey},
		{"not json", "aGVsbG8", StatusMalformedKey},
		{"missing organization", EncodeOffline("hs", "", time.Time{}), StatusMissingField},
		{"valid no expiry", EncodeOffline("hs", "org", time.Time{}), StatusOK},
		{"valid future expiry", EncodeOffline("hs", "org", now.Add(24*time.Hour)), StatusOK},
		{"expired", EncodeOffline("hs", "org", now.Add(-time.Hour)), StatusExpired},
		{"date-only expiry", "eyJoYW5kc2hha2VDb2RlIjoiaHMiLCJvcmdhbml6YXRpb25JRCI6Im9yZyIsImV4cGlyZXMiOiIyMDI3LTAxLTAxIn0", StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Validate(tt.key); got != tt.want {
				t.Errorf("Validate(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestDefault_IsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default returned distinct gates")
	}
}
