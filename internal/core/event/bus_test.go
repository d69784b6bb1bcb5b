package event

import "testing"

type hit struct{ n int }

func TestBusDeliversNextFrameInEmissionOrder(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e hit) { got = append(got, e.n) })
	Subscribe(b, func(e BattleOver) { got = append(got, -int(e.Frame)) })

	Emit(b, hit{1})
	Emit(b, BattleOver{Frame: 7})
	Emit(b, hit{2})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("events delivered before swap: %v", got)
	}
	if b.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	want := []int{1, -7, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 3 {
		t.Errorf("events redelivered: %v", got)
	}
}

func TestBusEmitDuringDispatchWaitsAFrame(t *testing.T) {
	b := NewBus()
	count := 0
	Subscribe(b, func(e hit) {
		count++
		if e.n < 3 {
			Emit(b, hit{e.n + 1})
		}
	})
	Emit(b, hit{1})
	for frame := 0; frame < 5; frame++ {
		b.SwapBuffers()
		b.DispatchAll()
	}
	if count != 3 {
		t.Errorf("expected 3 deliveries over 5 frames, got %d", count)
	}
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	b := NewBus()
	late := 0
	Subscribe(b, func(e hit) {
		if e.n == 1 {
			Subscribe(b, func(hit) { late++ })
		}
	})
	Emit(b, hit{1})
	b.SwapBuffers()
	b.DispatchAll()
	if late != 0 {
		t.Fatalf("handler added during dispatch saw the current event")
	}

	Emit(b, hit{2})
	b.SwapBuffers()
	b.DispatchAll()
	if late != 1 {
		t.Errorf("expected late handler to run once, got %d", late)
	}
}
