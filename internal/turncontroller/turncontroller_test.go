package turncontroller

import (
	"testing"
	"time"

	"ludo/internal/ports/fakeclock"
)

func awaitSignal(t *testing.T, ch <-chan Signal, want Signal) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got signal %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for signal %v", want)
	}
}

func assertNoSignal(t *testing.T, ch <-chan Signal) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected signal %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTickLoopFiresOncePerSecond(t *testing.T) {
	clock := fakeclock.New(time.Unix(0, 0))
	signals := make(chan Signal, 8)
	c := New(clock, func(s Signal) { signals <- s })

	c.RestartTurnTimer()

	clock.Advance(time.Second)
	awaitSignal(t, signals, SignalTick)

	clock.Advance(time.Second)
	awaitSignal(t, signals, SignalTick)
}

func TestRestartInvalidatesPriorTickLoop(t *testing.T) {
	clock := fakeclock.New(time.Unix(0, 0))
	signals := make(chan Signal, 8)
	c := New(clock, func(s Signal) { signals <- s })

	c.RestartTurnTimer()
	c.RestartTurnTimer() // stale loop from the first call must never fire

	clock.Advance(time.Second)
	awaitSignal(t, signals, SignalTick)
	assertNoSignal(t, signals)
}

func TestScheduleRollResolutionFiresOnce(t *testing.T) {
	clock := fakeclock.New(time.Unix(0, 0))
	signals := make(chan Signal, 8)
	c := New(clock, func(s Signal) { signals <- s })

	c.ScheduleRollResolution()
	clock.Advance(rollResolutionDelay)
	awaitSignal(t, signals, SignalResolveRoll)
}

func TestStopCancelsPendingSchedules(t *testing.T) {
	clock := fakeclock.New(time.Unix(0, 0))
	signals := make(chan Signal, 8)
	c := New(clock, func(s Signal) { signals <- s })

	c.ScheduleAdvanceAfterDelay()
	c.Stop()
	clock.Advance(outcomeDisplayDelay)
	assertNoSignal(t, signals)
}
