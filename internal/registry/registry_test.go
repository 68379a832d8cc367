package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ludo/internal/ports"
	"ludo/internal/ports/fakeclock"
	"ludo/internal/room"
)

type fakeWriter struct {
	frames chan room.Frame
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{frames: make(chan room.Frame, 32)}
}

func (w *fakeWriter) Send(f room.Frame) bool {
	select {
	case w.frames <- f:
	default:
	}
	return true
}

func (w *fakeWriter) latest(t *testing.T) room.Frame {
	t.Helper()
	var f room.Frame
	select {
	case f = <-w.frames:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return room.Frame{}
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

type fakePersistence struct {
	tournament *ports.Tournament
	err        error
}

func (f fakePersistence) LookupTournament(ctx context.Context, code string) (*ports.Tournament, error) {
	return f.tournament, f.err
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

type fakeRandom struct{}

func (fakeRandom) IntInRange(min, max int) int { return min }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJoinCreatesManualRoomWhenNoTournamentRow(t *testing.T) {
	reg := New(fakePersistence{}, fakeclock.New(time.Unix(0, 0)), fakeRandom{}, discardLogger(), nil)

	w := newFakeWriter()
	if err := reg.Join(context.Background(), "ABCD", "p1", "Alice", w); err != nil {
		t.Fatalf("Join: %v", err)
	}
	w.latest(t)

	if len(reg.rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(reg.rooms))
	}
}

func TestJoinReusesRoomOnSecondCall(t *testing.T) {
	reg := New(fakePersistence{}, fakeclock.New(time.Unix(0, 0)), fakeRandom{}, discardLogger(), nil)

	w1 := newFakeWriter()
	if err := reg.Join(context.Background(), "ABCD", "p1", "Alice", w1); err != nil {
		t.Fatalf("Join: %v", err)
	}
	w1.latest(t)

	w2 := newFakeWriter()
	if err := reg.Join(context.Background(), "ABCD", "p2", "Bob", w2); err != nil {
		t.Fatalf("Join: %v", err)
	}
	w2.latest(t)

	if len(reg.rooms) != 1 {
		t.Fatalf("expected the second Join to reuse the existing room, got %d rooms", len(reg.rooms))
	}
}

func TestJoinRejectsCompletedTournament(t *testing.T) {
	reg := New(fakePersistence{tournament: &ports.Tournament{
		ID:         "t1",
		Code:       "WXYZ",
		MaxPlayers: 4,
		Status:     ports.TournamentCompleted,
	}}, fakeclock.New(time.Unix(0, 0)), fakeRandom{}, discardLogger(), nil)

	w := newFakeWriter()
	err := reg.Join(context.Background(), "WXYZ", "p1", "Alice", w)
	if !errors.Is(err, ErrTournamentCompleted) {
		t.Fatalf("expected ErrTournamentCompleted, got %v", err)
	}
}

func TestJoinPropagatesLookupFailure(t *testing.T) {
	wantErr := errors.New("db unreachable")
	reg := New(fakePersistence{err: wantErr}, fakeclock.New(time.Unix(0, 0)), fakeRandom{}, discardLogger(), nil)

	w := newFakeWriter()
	err := reg.Join(context.Background(), "ABCD", "p1", "Alice", w)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if len(reg.rooms) != 0 {
		t.Fatalf("expected no room to be created on lookup failure, got %d", len(reg.rooms))
	}
}

func TestActionAndLeaveAreNoOpsForUnknownCode(t *testing.T) {
	reg := New(fakePersistence{}, fakeclock.New(time.Unix(0, 0)), fakeRandom{}, discardLogger(), nil)

	// Neither call should panic or block when the room doesn't exist.
	reg.Action("NOPE", room.Action{UserID: "p1", Kind: room.ActionRollDice})
	reg.Leave("NOPE", "p1")
}

func TestRoomEmptyThenNonEmptyCancelsEviction(t *testing.T) {
	clock := fakeclock.New(time.Unix(0, 0))
	reg := New(fakePersistence{}, clock, fakeRandom{}, discardLogger(), nil)

	w := newFakeWriter()
	if err := reg.Join(context.Background(), "ABCD", "p1", "Alice", w); err != nil {
		t.Fatalf("Join: %v", err)
	}
	w.latest(t)

	reg.RoomEmpty("ABCD")
	reg.RoomNonEmpty("ABCD")

	clock.Advance(emptyRoomGrace + time.Second)
	time.Sleep(50 * time.Millisecond)

	reg.mu.Lock()
	_, ok := reg.rooms["ABCD"]
	reg.mu.Unlock()
	if !ok {
		t.Fatal("expected room to survive after RoomNonEmpty cancelled the pending eviction")
	}
}

func TestRoomEmptyEvictsAfterGrace(t *testing.T) {
	clock := fakeclock.New(time.Unix(0, 0))
	reg := New(fakePersistence{}, clock, fakeRandom{}, discardLogger(), nil)

	w := newFakeWriter()
	if err := reg.Join(context.Background(), "ABCD", "p1", "Alice", w); err != nil {
		t.Fatalf("Join: %v", err)
	}
	w.latest(t)

	reg.RoomEmpty("ABCD")
	clock.Advance(emptyRoomGrace + time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		reg.mu.Lock()
		_, ok := reg.rooms["ABCD"]
		reg.mu.Unlock()
		if !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected room to be evicted after the empty-room grace period")
}
