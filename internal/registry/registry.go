// Package registry implements the Room Registry (spec §4.5): it maps
// room codes to running Room Actors, creating them lazily on first
// Join and tearing them down on a grace delay once a room is empty or
// finished. Grounded on ws/hub.go's Hub (map[string]*Room guarded by a
// mutex, lazy per-room goroutine via go room.Run()), generalized from
// matchmaking-by-bet-key to code-based lookup with a Postgres-backed
// tournament/manual-room decision (spec §3 "Room code resolution").
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ludo/internal/domain"
	"ludo/internal/metrics"
	"ludo/internal/ops"
	"ludo/internal/ports"
	"ludo/internal/room"
)

// ErrTournamentCompleted is returned by Join when the room code names
// a tournament that has already finished (spec §7: the Session must
// close with 1011 and must not create a fallback manual room).
var ErrTournamentCompleted = errors.New("tournament already completed")

const (
	emptyRoomGrace    = 60 * time.Second
	finishedRoomGrace = 5 * time.Second
	defaultManualSize = 4
)

type entry struct {
	room     *room.Room
	cancel   context.CancelFunc
	evictGen uint64
}

// Registry owns the set of live rooms.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*entry

	persistence ports.Persistence
	clock       ports.Clock
	rng         ports.Random
	log         *slog.Logger
	ops         *ops.Notifier // optional; nil is a valid no-op notifier
}

// New builds an empty Registry. notifier may be nil.
func New(persistence ports.Persistence, clock ports.Clock, rng ports.Random, log *slog.Logger, notifier *ops.Notifier) *Registry {
	return &Registry{
		rooms:       make(map[string]*entry),
		persistence: persistence,
		clock:       clock,
		rng:         rng,
		log:         log,
		ops:         notifier,
	}
}

// Join resolves code to a running room (creating it if needed) and
// posts a Join command for userID. The only error it can return is
// ErrTournamentCompleted or a persistence failure from the initial
// tournament lookup; once a room exists, Join never fails.
func (reg *Registry) Join(ctx context.Context, code, userID, name string, w room.Writer) error {
	e, err := reg.resolve(ctx, code)
	if err != nil {
		return err
	}
	e.room.Post(room.Join{UserID: userID, Name: name, Writer: w})
	return nil
}

// Action forwards a post-auth action to code's room, if it still exists.
func (reg *Registry) Action(code string, a room.Action) {
	if e := reg.lookup(code); e != nil {
		e.room.Post(a)
	}
}

// Leave notifies code's room that userID's transport detached.
func (reg *Registry) Leave(code, userID string) {
	if e := reg.lookup(code); e != nil {
		e.room.Post(room.Leave{UserID: userID})
	}
}

func (reg *Registry) lookup(code string) *entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.rooms[code]
}

func (reg *Registry) resolve(ctx context.Context, code string) (*entry, error) {
	if e := reg.lookup(code); e != nil {
		return e, nil
	}

	tournament, err := reg.persistence.LookupTournament(ctx, code)
	if err != nil {
		reg.log.Warn("tournament lookup failed", "code", code, "err", err)
		reg.ops.Notify("tournament_lookup_failed", map[string]any{"code": code, "error": err.Error()})
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e, ok := reg.rooms[code]; ok {
		return e, nil // lost the race to another Join for the same new code
	}

	var g *domain.Game
	if tournament != nil {
		if tournament.Status == ports.TournamentCompleted {
			return nil, ErrTournamentCompleted
		}
		g = domain.NewGame(code, domain.TypeTournament, tournament.MaxPlayers, tournament.ID)
		g.PrizeAmount = tournament.PrizeAmount
	} else {
		g = domain.NewGame(code, domain.TypeManual, defaultManualSize, "")
	}

	roomCtx, cancel := context.WithCancel(context.Background())
	rm := room.New(code, g, reg.persistence, reg.clock, reg.rng, reg, reg.log.With("room", code))
	e := &entry{room: rm, cancel: cancel}
	reg.rooms[code] = e
	metrics.ActiveRooms.Inc()
	go rm.Run(roomCtx)
	return e, nil
}

// RoomEmpty implements room.Notifier: schedule eviction once every
// writer has detached, unless a reconnect cancels it first.
func (reg *Registry) RoomEmpty(code string) {
	reg.scheduleEvict(code, emptyRoomGrace)
}

// RoomNonEmpty implements room.Notifier: a Join arrived before the
// empty-room grace elapsed, so cancel any pending eviction.
func (reg *Registry) RoomNonEmpty(code string) {
	reg.cancelEvict(code)
}

// RoomFinished implements room.Notifier: the game reached Finished, so
// schedule the (shorter) post-game eviction.
func (reg *Registry) RoomFinished(code string) {
	reg.ops.Notify("room_finished", map[string]any{"code": code})
	reg.scheduleEvict(code, finishedRoomGrace)
}

func (reg *Registry) scheduleEvict(code string, delay time.Duration) {
	reg.mu.Lock()
	e, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return
	}
	e.evictGen++
	gen := e.evictGen
	reg.mu.Unlock()

	fire := reg.clock.After(delay)
	go func() {
		<-fire
		reg.performEvict(code, gen)
	}()
}

func (reg *Registry) cancelEvict(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e, ok := reg.rooms[code]; ok {
		e.evictGen++
	}
}

func (reg *Registry) performEvict(code string, gen uint64) {
	reg.mu.Lock()
	e, ok := reg.rooms[code]
	if !ok || e.evictGen != gen {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, code)
	reg.mu.Unlock()

	metrics.ActiveRooms.Dec()
	e.room.Post(room.Evict{})
	e.cancel()
}
