package debounce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStateSettlesAfterWindow(t *testing.T) {
	clock := NewManualClock()
	var settled []string
	s := New(Options{Clock: clock, OnSettle: func(v string) { settled = append(settled, v) }})
	defer s.Close()

	s.Set("m")
	s.Set("ma")
	s.Set("mat")
	assert.Equal(t, "mat", s.Raw())
	assert.Equal(t, "", s.Settled())

	clock.Advance(DefaultWindow - time.Millisecond)
	assert.Empty(t, settled)
	assert.True(t, s.Pending())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"mat"}, settled)
	assert.Equal(t, "mat", s.Settled())
	assert.False(t, s.Pending())
}

func TestStateEachKeystrokeRestartsWindow(t *testing.T) {
	clock := NewManualClock()
	calls := 0
	s := New(Options{Clock: clock, Window: 100 * time.Millisecond, OnSettle: func(string) { calls++ }})
	defer s.Close()

	s.Set("a")
	clock.Advance(90 * time.Millisecond)
	s.Set("ab")
	clock.Advance(90 * time.Millisecond)
	assert.Equal(t, 0, calls)

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ab", s.Settled())
}

func TestStateEmptyStringSettles(t *testing.T) {
	clock := NewManualClock()
	var got []string
	s := New(Options{Clock: clock, Initial: "math", OnSettle: func(v string) { got = append(got, v) }})
	defer s.Close()

	s.Set("")
	clock.Advance(DefaultWindow)
	assert.Equal(t, []string{""}, got)
}

func TestStateUnchangedValueDoesNotNotify(t *testing.T) {
	clock := NewManualClock()
	calls := 0
	s := New(Options{Clock: clock, Initial: "bio", OnSettle: func(string) { calls++ }})
	defer s.Close()

	s.Set("bi")
	s.Set("bio")
	clock.Advance(DefaultWindow)
	assert.Equal(t, 0, calls)
}

func TestStateCloseCancelsPendingSettle(t *testing.T) {
	clock := NewManualClock()
	calls := 0
	s := New(Options{Clock: clock, OnSettle: func(string) { calls++ }})

	s.Set("x")
	s.Close()
	clock.Advance(DefaultWindow)
	s.Set("y")
	clock.Advance(DefaultWindow)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, clock.Pending())
}

func TestStateFlush(t *testing.T) {
	clock := NewManualClock()
	s := New(Options{Clock: clock})
	defer s.Close()

	s.Set("chem")
	s.Flush()
	assert.Equal(t, "chem", s.Settled())
	assert.Equal(t, 0, clock.Pending())
}

func TestStateSubscribe(t *testing.T) {
	clock := NewManualClock()
	s := New(Options{Clock: clock})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)

	s.Set("phys")
	clock.Advance(DefaultWindow)

	select {
	case ev := <-events:
		require.Equal(t, "phys", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("no settled event")
	}
}

func TestStateRealClock(t *testing.T) {
	done := make(chan string, 1)
	s := New(Options{Window: 10 * time.Millisecond, OnSettle: func(v string) { done <- v }})
	defer s.Close()

	s.Set("eng")
	select {
	case v := <-done:
		assert.Equal(t, "eng", v)
	case <-time.After(time.Second):
		t.Fatal("real clock never settled")
	}
}

// Keystrokes separated by less than the window produce one settled update equal to the
// last keystroke.
func TestStateBurstSettlesOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		window := time.Duration(rapid.IntRange(10, 1000).Draw(t, "windowMs")) * time.Millisecond
		keys := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{0,6}`), 1, 30).Draw(t, "keys")

		clock := NewManualClock()
		var got []string
		s := New(Options{Clock: clock, Window: window, OnSettle: func(v string) { got = append(got, v) }})
		defer s.Close()

		for i, k := range keys {
			s.Set(k)
			gap := rapid.Int64Range(0, int64(window)-1).Draw(t, "gap")
			if i < len(keys)-1 {
				clock.Advance(time.Duration(gap))
			}
		}
		if len(got) != 0 {
			t.Fatalf("settled during burst: %v", got)
		}

		clock.Advance(window)
		last := keys[len(keys)-1]
		if last == "" {
			if len(got) != 0 {
				t.Fatalf("expected no update when value returns to initial, got %v", got)
			}
			return
		}
		if len(got) != 1 || got[0] != last {
			t.Fatalf("expected single update %q, got %v", last, got)
		}
	})
}
