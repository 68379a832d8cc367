package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ludo/internal/idempotency"
	"ludo/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceRepository implements ports.Persistence against Postgres.
// Tournament rows live in "tournaments" (id, code, max_players, status,
// prize_amount), wallet balances in "users" (id, balance), linked TON
// addresses in "wallets" (user_id, address, raw_address), and the two
// append-only logs in "tournament_chat_messages" and
// "tournament_turn_log_entries", grounded on wallet_repo.go's query
// style and balance_service.go's transactional credit pattern (with a
// wallet_ledger existence check in place of its FOR UPDATE row lock).
type PersistenceRepository struct {
	db    *pgxpool.Pool
	guard *idempotency.Guard // optional fast-path; nil falls back to the DB-only check
}

// NewPersistenceRepository builds a PersistenceRepository.
func NewPersistenceRepository(db *pgxpool.Pool, guard *idempotency.Guard) *PersistenceRepository {
	return &PersistenceRepository{db: db, guard: guard}
}

// LookupTournament implements ports.Persistence.
func (r *PersistenceRepository) LookupTournament(ctx context.Context, code string) (*ports.Tournament, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, code, max_players, status, prize_amount
		FROM tournaments
		WHERE code = $1
	`, code)

	var t ports.Tournament
	if err := row.Scan(&t.ID, &t.Code, &t.MaxPlayers, &t.Status, &t.PrizeAmount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// AppendChatMessage implements ports.Persistence.
func (r *PersistenceRepository) AppendChatMessage(ctx context.Context, tournamentID string, playerID, name, text string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tournament_chat_messages (tournament_id, player_id, name, text, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tournamentID, playerID, name, text, at)
	return err
}

// AppendTurnLogEntry implements ports.Persistence.
func (r *PersistenceRepository) AppendTurnLogEntry(ctx context.Context, tournamentID string, entryID, actorID, kind string, detail map[string]any, at time.Time) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		detailJSON = []byte("{}")
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO tournament_turn_log_entries (id, tournament_id, actor_id, kind, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entryID, tournamentID, actorID, kind, detailJSON, at)
	return err
}

// CreditBalance implements ports.Persistence. It is idempotent per
// txID: the optional Redis reservation, then a check inside the
// transaction for an existing wallet_ledger row with that tx_id, turn
// a replayed credit (e.g. a redelivered win notification) into a no-op rather
// than a double payout, the same guarantee balance_service.go gave
// bet settlement via its transaction log.
func (r *PersistenceRepository) CreditBalance(ctx context.Context, userID string, amount int64, txID string) error {
	if amount <= 0 {
		return nil
	}

	if r.guard != nil {
		claimed, err := r.guard.Reserve(ctx, txID)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
	}

	if err := r.creditTx(ctx, userID, amount, txID); err != nil {
		if r.guard != nil {
			// release the reservation so a legitimate retry isn't
			// permanently blocked by this attempt's failure
			_ = r.guard.Release(ctx, txID)
		}
		return err
	}
	return nil
}

// ResolveAddress implements payment/ton.AddressResolver, mirroring
// wallet_repo.go's GetByAnyAddress lookup but keyed on the string user
// ids the game core uses.
func (r *PersistenceRepository) ResolveAddress(ctx context.Context, address string) (userID string, ok bool, err error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id FROM wallets WHERE address = $1 OR raw_address = $1
	`, address)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return userID, true, nil
}

func (r *PersistenceRepository) creditTx(ctx context.Context, userID string, amount int64, txID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var alreadyApplied bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallet_ledger WHERE tx_id = $1)`, txID).Scan(&alreadyApplied)
	if err != nil {
		return err
	}
	if alreadyApplied {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET balance = balance + $1 WHERE id = $2
	`, amount, userID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO wallet_ledger (tx_id, user_id, amount, reason)
		VALUES ($1, $2, $3, 'ludo_win')
	`, txID, userID, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
