package agent

import "testing"

func TestEmitterDelivery(t *testing.T) {
	em := NewEventEmitter("loop-1", 4)
	em.Emit(EventUserInput, map[string]interface{}{"content": "hi"})
	em.Close()

	var got []Event
	for ev := range em.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Kind != EventUserInput || got[0].LoopID != "loop-1" {
		t.Errorf("events = %+v", got)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

// A slow or absent consumer must never block the loop.
func TestEmitterDropsWhenFull(t *testing.T) {
	em := NewEventEmitter("loop-1", 2)
	for i := 0; i < 10; i++ {
		em.Emit(EventStepStart, nil)
	}
	em.Close()

	count := 0
	for range em.Events() {
		count++
	}
	if count != 2 {
		t.Errorf("delivered = %d, want buffer size 2", count)
	}
}

func TestEmitterCloseIdempotent(t *testing.T) {
	em := NewEventEmitter("loop-1", 1)
	em.Close()
	em.Close()
	em.Emit(EventTurnEnd, nil)
}
