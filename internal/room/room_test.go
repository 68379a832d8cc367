package room

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"ludo/internal/domain"
	"ludo/internal/ports"
	"ludo/internal/ports/fakeclock"
)

type fakeWriter struct {
	frames chan Frame
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{frames: make(chan Frame, 32)}
}

func (w *fakeWriter) Send(f Frame) bool {
	w.frames <- f
	return true
}

// latest blocks for at least one frame, then drains any further frames
// already queued and returns the most recent one. Every mutating
// command in the Room Actor ends in a broadcast, so "the state after
// settling" is always the last frame delivered once the actor goes
// quiet again.
func (w *fakeWriter) latest(t *testing.T) Frame {
	t.Helper()
	var f Frame
	select {
	case f = <-w.frames:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return Frame{}
	}
	for {
		select {
		case next := <-w.frames:
			f = next
		case <-time.After(100 * time.Millisecond):
			return f
		}
	}
}

func (w *fakeWriter) assertNoneSoon(t *testing.T) {
	t.Helper()
	select {
	case f := <-w.frames:
		t.Fatalf("unexpected frame: %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

type fakePersistence struct{}

func (fakePersistence) LookupTournament(ctx context.Context, code string) (*ports.Tournament, error) {
	return nil, nil
}
func (fakePersistence) AppendChatMessage(ctx context.Context, tournamentID, playerID, name, text string, at time.Time) error {
	return nil
}
func (fakePersistence) AppendTurnLogEntry(ctx context.Context, tournamentID, entryID, actorID, kind string, detail map[string]any, at time.Time) error {
	return nil
}
func (fakePersistence) CreditBalance(ctx context.Context, userID string, amount int64, txID string) error {
	return nil
}

type fakeRandom struct{ value int }

func (f fakeRandom) IntInRange(min, max int) int { return f.value }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopNotifier struct{}

func (noopNotifier) RoomEmpty(string)    {}
func (noopNotifier) RoomNonEmpty(string) {}
func (noopNotifier) RoomFinished(string) {}

func newTestRoom(t *testing.T) (*Room, *fakeclock.Clock) {
	t.Helper()
	g := domain.NewGame("TEST", domain.TypeManual, 2, "")
	clock := fakeclock.New(time.Unix(0, 0))
	rm := New("TEST", g, fakePersistence{}, clock, fakeRandom{6}, noopNotifier{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go rm.Run(ctx)
	return rm, clock
}

func TestJoinSeatsPlayersAndStartsOnHostAction(t *testing.T) {
	rm, _ := newTestRoom(t)

	w1 := newFakeWriter()
	rm.Post(Join{UserID: "p1", Name: "Alice", Writer: w1})
	w1.latest(t)

	w2 := newFakeWriter()
	rm.Post(Join{UserID: "p2", Name: "Bob", Writer: w2})
	f := w1.latest(t)
	w2.latest(t)

	game := f.Payload.(*domain.Game)
	if len(game.Players) != 2 {
		t.Fatalf("expected 2 seated players, got %d", len(game.Players))
	}
	if game.HostID != "p1" {
		t.Fatalf("expected p1 to be host, got %q", game.HostID)
	}

	// Non-host start is ignored.
	rm.Post(Action{UserID: "p2", Kind: ActionStartGame})
	w1.assertNoneSoon(t)
	w2.assertNoneSoon(t)

	rm.Post(Action{UserID: "p1", Kind: ActionStartGame})
	f = w1.latest(t)
	w2.latest(t)
	game = f.Payload.(*domain.Game)
	if game.Status != domain.StatusPlaying {
		t.Fatalf("expected Playing after host start, got %s", game.Status)
	}
}

func TestRollDiceResolvesAfterDelay(t *testing.T) {
	rm, clock := newTestRoom(t)

	w1 := newFakeWriter()
	w2 := newFakeWriter()
	rm.Post(Join{UserID: "p1", Name: "Alice", Writer: w1})
	w1.latest(t)
	rm.Post(Join{UserID: "p2", Name: "Bob", Writer: w2})
	w1.latest(t)
	w2.latest(t)

	rm.Post(Action{UserID: "p1", Kind: ActionStartGame})
	w1.latest(t)
	w2.latest(t)

	rm.Post(Action{UserID: "p1", Kind: ActionRollDice})
	f := w1.latest(t)
	w2.latest(t)
	game := f.Payload.(*domain.Game)
	if !game.IsRolling {
		t.Fatal("expected IsRolling=true immediately after ROLL_DICE")
	}

	clock.Advance(750 * time.Millisecond)
	f = w1.latest(t)
	w2.latest(t)
	game = f.Payload.(*domain.Game)
	if game.Dice == nil || *game.Dice != 6 {
		t.Fatalf("expected resolved dice=6, got %v", game.Dice)
	}
	if len(game.Movable) != 4 {
		t.Fatalf("expected all 4 home pieces movable, got %v", game.Movable)
	}
}

func TestDisconnectThenReconnectCancelsLeaveGrace(t *testing.T) {
	rm, clock := newTestRoom(t)

	w1 := newFakeWriter()
	w2 := newFakeWriter()
	rm.Post(Join{UserID: "p1", Name: "Alice", Writer: w1})
	w1.latest(t)
	rm.Post(Join{UserID: "p2", Name: "Bob", Writer: w2})
	w1.latest(t)
	w2.latest(t)

	rm.Post(Action{UserID: "p1", Kind: ActionStartGame})
	w1.latest(t)
	w2.latest(t)

	rm.Post(Leave{UserID: "p2"})
	f := w1.latest(t)
	game := f.Payload.(*domain.Game)
	if !game.Players[1].Disconnected {
		t.Fatal("expected p2 marked Disconnected")
	}

	w2b := newFakeWriter()
	rm.Post(Join{UserID: "p2", Name: "Bob", Writer: w2b})
	f = w1.latest(t)
	w2b.latest(t)
	game = f.Payload.(*domain.Game)
	if game.Players[1].Disconnected {
		t.Fatal("reconnect should have cleared Disconnected")
	}

	// Advancing the clock past the grace period must NOT forfeit p2,
	// since the reconnect cancelled the pending leave.
	clock.Advance(31 * time.Second)
	w1.assertNoneSoon(t)
}
