// Package room implements the Room Actor (spec §4.3): one goroutine
// per active game, owning the canonical domain.Game and serializing
// every mutation through a single command inbox so the Rule Engine
// never observes concurrent writers. Grounded on ws/room.go's
// mutex-guarded Room struct and ws/hub.go's "go room.Run()" per-room
// goroutine, generalized from a 2-player bet-settling room to an
// N-player turn-based one with an explicit command sum type (see
// command.go) in place of ws/room.go's ad-hoc channel-of-concrete-type
// dispatch.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ludo/internal/domain"
	"ludo/internal/engine"
	"ludo/internal/metrics"
	"ludo/internal/ports"
	"ludo/internal/turncontroller"
)

const reconnectGracePeriod = 30 * time.Second
const persistenceTimeout = 3 * time.Second

// Notifier lets a Room Actor tell the Registry about lifecycle
// transitions it cares about for eviction scheduling (spec §4.5),
// without the actor holding a pointer to the Registry itself.
type Notifier interface {
	RoomEmpty(code string)
	RoomNonEmpty(code string)
	RoomFinished(code string)
}

// Room is one active game's actor. All exported interaction happens
// through Post; nothing outside Run's goroutine touches Game.
type Room struct {
	code string
	game *domain.Game

	inbox chan Command
	done  chan struct{}

	writers         map[string]Writer
	pendingLeaveGen map[string]uint64
	leaveGen        uint64

	persistence ports.Persistence
	clock       ports.Clock
	rng         ports.Random
	notifier    Notifier
	turnCtl     *turncontroller.Controller

	turnStartedAt time.Time

	log *slog.Logger
}

// New builds a Room around an already-seeded (or empty, Setup-stage)
// Game.
func New(code string, game *domain.Game, persistence ports.Persistence, clock ports.Clock, rng ports.Random, notifier Notifier, log *slog.Logger) *Room {
	return &Room{
		code:            code,
		game:            game,
		inbox:           make(chan Command, 64),
		done:            make(chan struct{}),
		writers:         make(map[string]Writer),
		pendingLeaveGen: make(map[string]uint64),
		persistence:     persistence,
		clock:           clock,
		rng:             rng,
		notifier:        notifier,
		log:             log.With("room", code),
	}
}

// Post enqueues a command, dropping it silently if the room has
// already been evicted.
func (rm *Room) Post(cmd Command) {
	select {
	case rm.inbox <- cmd:
	case <-rm.done:
	}
}

// Run drives the actor's command loop until ctx is cancelled.
func (rm *Room) Run(ctx context.Context) {
	rm.turnCtl = turncontroller.New(rm.clock, rm.postSignal)
	defer close(rm.done)

	for {
		select {
		case cmd := <-rm.inbox:
			rm.handle(cmd)
		case <-ctx.Done():
			rm.turnCtl.Stop()
			return
		}
	}
}

func (rm *Room) postSignal(sig turncontroller.Signal) {
	var kind tickKind
	switch sig {
	case turncontroller.SignalTick:
		kind = tickCountdown
	case turncontroller.SignalResolveRoll:
		kind = tickResolveRoll
	case turncontroller.SignalAdvanceAfterDelay:
		kind = tickAdvanceAfterDelay
	}
	rm.Post(tick{kind: kind})
}

// restartTurnTimer records the time since the previous restart, then
// starts the timer fresh. It is called when the game starts (when
// turnStartedAt is still zero and no observation is made), after every
// applied move that does not win (bonus turns included), after a missed
// turn, and after a delayed seat advance, so an observation covers one
// timer period rather than a seat's whole tenure.
func (rm *Room) restartTurnTimer() {
	if !rm.turnStartedAt.IsZero() {
		metrics.TurnDuration.Observe(rm.clock.Now().Sub(rm.turnStartedAt).Seconds())
	}
	rm.turnStartedAt = rm.clock.Now()
	rm.turnCtl.RestartTurnTimer()
}

func (rm *Room) handle(cmd Command) {
	switch c := cmd.(type) {
	case Join:
		rm.handleJoin(c)
	case Action:
		rm.handleAction(c)
	case Leave:
		rm.handleLeave(c)
	case tick:
		rm.handleTick(c)
	case reconnectExpired:
		rm.handleReconnectExpired(c)
	case Evict:
		rm.handleEvict()
	}
}

func (rm *Room) handleJoin(j Join) {
	seat := rm.game.SeatOf(j.UserID)
	if seat < 0 {
		if rm.game.Status != domain.StatusSetup {
			j.Writer.Send(Frame{Type: FrameError, Payload: "game already started"})
			return
		}
		if !engine.AddPlayer(rm.game, j.UserID, j.Name) {
			j.Writer.Send(Frame{Type: FrameError, Payload: "room is full"})
			return
		}
		rm.appendTurnLog(j.UserID, domain.TurnLogJoin, nil)
	} else {
		rm.game.Players[seat].Disconnected = false
		delete(rm.pendingLeaveGen, j.UserID)
	}

	rm.writers[j.UserID] = j.Writer

	if rm.game.Type == domain.TypeTournament && rm.game.Status == domain.StatusSetup && len(rm.game.Players) == rm.game.MaxPlayers {
		if engine.StartGame(rm.game) {
			rm.restartTurnTimer()
			rm.appendTurnLog(j.UserID, "game_started", nil)
		}
	}

	rm.notifier.RoomNonEmpty(rm.code)
	rm.broadcast()
}

func (rm *Room) handleAction(a Action) {
	switch a.Kind {
	case ActionStartGame:
		if a.UserID != rm.game.HostID {
			return
		}
		if engine.StartGame(rm.game) {
			rm.restartTurnTimer()
			rm.appendTurnLog(a.UserID, "game_started", nil)
			rm.broadcast()
		}

	case ActionRollDice:
		if engine.InitiateRoll(rm.game, a.UserID) {
			rm.broadcast()
			rm.turnCtl.ScheduleRollResolution()
		}

	case ActionMovePiece:
		result := engine.MovePiece(rm.game, a.UserID, a.PieceID)
		if !result.Applied {
			return
		}
		rm.appendTurnLog(a.UserID, domain.TurnLogMove, map[string]any{"pieceId": a.PieceID})
		if result.Captured {
			rm.appendTurnLog(a.UserID, domain.TurnLogCapture, map[string]any{"pieceId": a.PieceID})
		}
		if result.Finished {
			rm.appendTurnLog(a.UserID, domain.TurnLogFinish, map[string]any{"pieceId": a.PieceID})
		}
		if result.GameWon {
			rm.turnCtl.Stop()
			rm.appendTurnLog(a.UserID, domain.TurnLogWinner, nil)
			rm.creditWinner(a.UserID)
		} else {
			rm.restartTurnTimer()
			if result.BonusTurn {
				rm.appendTurnLog(a.UserID, domain.TurnLogBonusTurn, nil)
			}
		}
		rm.broadcast()

	case ActionSendChat:
		if a.Text == "" {
			return
		}
		seat := rm.game.SeatOf(a.UserID)
		if seat < 0 {
			return
		}
		player := rm.game.Players[seat]
		at := rm.clock.Now()
		rm.game.Chat.Append(domain.ChatMessage{
			ID:       uuid.New().String(),
			PlayerID: a.UserID,
			Name:     player.Name,
			Text:     a.Text,
			At:       at,
		})
		rm.persistChat(a.UserID, player.Name, a.Text, at)
		rm.broadcast()

	case ActionLeaveGame:
		engine.RemovePlayer(rm.game, a.UserID)
		delete(rm.writers, a.UserID)
		delete(rm.pendingLeaveGen, a.UserID)
		rm.appendTurnLog(a.UserID, domain.TurnLogLeave, nil)
		if rm.game.Status == domain.StatusFinished {
			rm.turnCtl.Stop()
			rm.notifier.RoomFinished(rm.code)
		}
		rm.broadcast()
		rm.checkEmpty()
	}
}

func (rm *Room) handleLeave(l Leave) {
	if _, ok := rm.writers[l.UserID]; !ok {
		return
	}
	delete(rm.writers, l.UserID)
	if seat := rm.game.SeatOf(l.UserID); seat >= 0 {
		rm.game.Players[seat].Disconnected = true
	}
	rm.scheduleReconnectGrace(l.UserID)
	rm.broadcast()
	rm.checkEmpty()
}

func (rm *Room) scheduleReconnectGrace(userID string) {
	rm.leaveGen++
	gen := rm.leaveGen
	rm.pendingLeaveGen[userID] = gen
	go func() {
		<-rm.clock.After(reconnectGracePeriod)
		rm.Post(reconnectExpired{UserID: userID, Generation: gen})
	}()
}

func (rm *Room) handleReconnectExpired(e reconnectExpired) {
	if current, ok := rm.pendingLeaveGen[e.UserID]; !ok || current != e.Generation {
		return // cancelled by a reconnect, or already superseded
	}
	delete(rm.pendingLeaveGen, e.UserID)
	engine.RemovePlayer(rm.game, e.UserID)
	rm.appendTurnLog(e.UserID, domain.TurnLogLeave, nil)
	if rm.game.Status == domain.StatusFinished {
		rm.turnCtl.Stop()
		rm.notifier.RoomFinished(rm.code)
	}
	rm.broadcast()
}

func (rm *Room) handleTick(t tick) {
	switch t.kind {
	case tickCountdown:
		if rm.game.Status != domain.StatusPlaying {
			return
		}
		rm.game.TurnSecondsLeft--
		if rm.game.TurnSecondsLeft <= 0 {
			current := rm.game.Current()
			forfeited := engine.HandleMissedTurn(rm.game)
			if current != nil {
				if forfeited {
					rm.appendTurnLog(current.ID, domain.TurnLogRemoved, nil)
				} else {
					rm.appendTurnLog(current.ID, domain.TurnLogMissedTurn, nil)
				}
			}
			if rm.game.Status == domain.StatusFinished {
				rm.turnCtl.Stop()
				rm.notifier.RoomFinished(rm.code)
				if rm.game.Winner != "" {
					rm.creditWinner(rm.game.Winner)
				}
			} else {
				rm.restartTurnTimer()
			}
			rm.broadcast()
		} else if rm.game.TurnSecondsLeft%5 == 0 {
			// countdown-only ticks broadcast every 5th second to avoid
			// traffic amplification (spec §4.3); a state change above
			// always broadcasts immediately.
			rm.broadcast()
		}

	case tickResolveRoll:
		current := rm.game.Current()
		if current == nil {
			return
		}
		outcome := engine.CompleteRoll(rm.game, rm.rng)
		rm.appendTurnLog(current.ID, domain.TurnLogRoll, map[string]any{"value": outcome.Value})
		if outcome.ThreeSixesForfeit {
			rm.appendTurnLog(current.ID, domain.TurnLogForfeit, nil)
			rm.turnCtl.ScheduleAdvanceAfterDelay()
		} else if outcome.NoLegalMove {
			rm.turnCtl.ScheduleAdvanceAfterDelay()
		}
		rm.broadcast()

	case tickAdvanceAfterDelay:
		engine.AdvanceSeat(rm.game)
		if rm.game.Status == domain.StatusFinished {
			rm.turnCtl.Stop()
			rm.notifier.RoomFinished(rm.code)
		} else {
			rm.restartTurnTimer()
		}
		rm.broadcast()
	}
}

func (rm *Room) handleEvict() {
	rm.turnCtl.Stop()
	rm.writers = map[string]Writer{}
}

func (rm *Room) checkEmpty() {
	if len(rm.writers) == 0 {
		rm.notifier.RoomEmpty(rm.code)
	}
}

func (rm *Room) broadcast() {
	for userID, w := range rm.writers {
		if !w.Send(Frame{Type: FrameGameStateUpdate, Payload: rm.game}) {
			delete(rm.writers, userID)
		}
	}
}

func (rm *Room) appendTurnLog(actorID, kind string, detail map[string]any) {
	at := rm.clock.Now()
	entry := rm.game.TurnLog.Append(uuid.New().String(), actorID, kind, detail, at)
	if rm.game.TournamentID == "" || rm.persistence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistenceTimeout)
	go func() {
		defer cancel()
		if err := rm.persistence.AppendTurnLogEntry(ctx, rm.game.TournamentID, entry.ID, entry.ActorID, entry.Kind, entry.Detail, at); err != nil {
			rm.log.Warn("turn log persistence failed", "err", err)
			metrics.PersistenceFailures.WithLabelValues("append_turn_log").Inc()
		}
	}()
}

func (rm *Room) persistChat(playerID, name, text string, at time.Time) {
	if rm.game.TournamentID == "" || rm.persistence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistenceTimeout)
	go func() {
		defer cancel()
		if err := rm.persistence.AppendChatMessage(ctx, rm.game.TournamentID, playerID, name, text, at); err != nil {
			rm.log.Warn("chat persistence failed", "err", err)
			metrics.PersistenceFailures.WithLabelValues("append_chat").Inc()
		}
	}()
}

func (rm *Room) creditWinner(winnerID string) {
	if rm.game.TournamentID == "" || rm.persistence == nil {
		return
	}
	if rm.game.PrizeAmount <= 0 {
		return
	}
	txID := fmt.Sprintf("ludo-win-%s-%s", rm.game.TournamentID, winnerID)
	ctx, cancel := context.WithTimeout(context.Background(), persistenceTimeout)
	go func() {
		defer cancel()
		if err := rm.persistence.CreditBalance(ctx, winnerID, rm.game.PrizeAmount, txID); err != nil {
			rm.log.Warn("winner credit failed", "err", err, "winner", winnerID)
			metrics.PersistenceFailures.WithLabelValues("credit_balance").Inc()
		}
	}()
}
