// Package ton is the payment gateway's deposit watcher, explicitly
// out of the game core (spec §1: "separate HTTP handlers that share
// only the persistence port"). It polls a TON ledger for incoming
// transfers and credits the sender's wallet through the same
// idempotent path tournament winnings use, grounded on
// service/deposit_watcher.go's polling-loop shape.
package ton

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ludo/internal/ports"
	tonclient "ludo/internal/ton"
)

// AddressResolver maps an on-chain sender address to the platform
// user id it is linked to, or ok=false if no link exists.
type AddressResolver interface {
	ResolveAddress(ctx context.Context, address string) (userID string, ok bool, err error)
}

// Watcher polls a platform wallet address for incoming transfers and
// credits the linked user's balance.
type Watcher struct {
	client         *tonclient.Client
	persistence    ports.Persistence
	resolver       AddressResolver
	platformWallet string
	interval       time.Duration
	log            *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}

	lastLt int64
}

// New builds a Watcher. It does nothing until Start is called.
func New(client *tonclient.Client, persistence ports.Persistence, resolver AddressResolver, platformWallet string, interval time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{
		client:         client,
		persistence:    persistence,
		resolver:       resolver,
		platformWallet: platformWallet,
		interval:       interval,
		log:            log,
	}
}

// Start runs the poll loop until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	w.mu.Unlock()

	w.log.Info("deposit watcher started", "wallet", w.platformWallet, "interval", w.interval)

	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.poll(ctx)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the poll loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stop)
		w.running = false
	}
}

func (w *Watcher) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if w.platformWallet == "" {
		return
	}

	txs, err := w.client.GetTransactions(pollCtx, w.platformWallet, 50, w.lastLt)
	if err != nil {
		w.log.Error("deposit watcher: fetch failed", "error", err)
		return
	}

	incoming := tonclient.ParseIncomingTransactions(txs, w.platformWallet)
	for _, tx := range incoming {
		if tx.Lt > w.lastLt {
			w.lastLt = tx.Lt
		}
		if err := w.credit(pollCtx, tx); err != nil {
			w.log.Error("deposit watcher: credit failed", "hash", tx.Hash, "error", err)
		}
	}
}

func (w *Watcher) credit(ctx context.Context, tx tonclient.Transaction) error {
	if tx.InMsg == nil || tx.InMsg.Source == nil || tx.InMsg.Value < tonclient.MinDepositNano {
		return nil
	}

	// tonapi.io reports sender addresses in whatever format the
	// wallet used to sign; normalize to raw so it matches however the
	// address was stored when the user linked their wallet.
	senderAddress, err := tonclient.NormalizeAddress(tx.InMsg.Source.Address)
	if err != nil {
		w.log.Warn("deposit watcher: unrecognized sender address format", "address", tx.InMsg.Source.Address, "hash", tx.Hash)
		return nil
	}

	userID, ok, err := w.resolver.ResolveAddress(ctx, senderAddress)
	if err != nil {
		return fmt.Errorf("resolve sender: %w", err)
	}
	if !ok {
		w.log.Warn("deposit watcher: no linked user for sender", "address", senderAddress, "hash", tx.Hash)
		return nil
	}

	amountNano := tx.InMsg.Value
	txID := fmt.Sprintf("ludo-deposit-%s", tx.Hash)
	if err := w.persistence.CreditBalance(ctx, userID, amountNano, txID); err != nil {
		return err
	}

	w.log.Info("deposit watcher: credited deposit",
		"userID", userID, "amountTON", tonclient.NanoToTON(amountNano), "hash", tx.Hash)
	return nil
}
