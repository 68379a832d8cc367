// Package ports declares the narrow external interfaces the game
// core depends on (spec §4.6). Implementations live in sibling
// packages (internal/identity, internal/clockrand, internal/repository)
// so that internal/engine, internal/room, and internal/turncontroller
// stay free of I/O and are trivially testable with fakes.
package ports

import (
	"context"
	"time"
)

// Identity resolves a bearer token to the user it represents.
type Identity interface {
	Resolve(ctx context.Context, token string) (userID, displayName string, err error)
}

// Tournament is the subset of a persisted tournament row the core
// needs to seed a Room (spec §4.5).
type Tournament struct {
	ID          string
	Code        string
	MaxPlayers  int
	Status      string // "ACTIVE" or "COMPLETED"
	PrizeAmount int64
}

const (
	TournamentActive    = "ACTIVE"
	TournamentCompleted = "COMPLETED"
)

// Persistence is the storage port: tournament lookup, append-only
// chat/turn logs, and wallet credit. Any operation may fail; failure
// is logged and swallowed by the core except where spec §7 says
// otherwise (tournament lookup at connect).
type Persistence interface {
	LookupTournament(ctx context.Context, code string) (*Tournament, error)
	AppendChatMessage(ctx context.Context, tournamentID string, playerID, name, text string, at time.Time) error
	AppendTurnLogEntry(ctx context.Context, tournamentID string, entryID, actorID, kind string, detail map[string]any, at time.Time) error
	CreditBalance(ctx context.Context, userID string, amount int64, txID string) error
}

// Clock abstracts wall-clock time and timers so the Turn Controller
// and Room Actor can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Random abstracts dice generation (spec §4.6 "intInRange(1, 6)").
type Random interface {
	IntInRange(min, max int) int
}
