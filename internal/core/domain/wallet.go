package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the root of an HD key tree. A watch-only wallet has no
// encrypted seed and its accounts are imported by extended public key.
type Wallet struct {
	ID              string
	Network         Network `badgerhold:"index"`
	EncryptedSeed   string
	SeedFingerprint string `badgerhold:"index"`
	WatchOnly       bool
	AccountCount    uint32
	LastSyncedAt    int64
	CreatedAt       int64
}

// NewWallet returns a wallet with a fresh identifier. The fingerprint is used
// to detect the same seed being imported twice on a network.
func NewWallet(
	network Network, encryptedSeed, fingerprint string, now time.Time,
) (*Wallet, error) {
	if !network.IsValid() {
		return nil, ErrInvalidNetwork
	}
	if fingerprint == "" {
		return nil, ErrMissingFingerprint
	}
	return &Wallet{
		ID:              uuid.New().String(),
		Network:         network,
		EncryptedSeed:   encryptedSeed,
		SeedFingerprint: fingerprint,
		WatchOnly:       encryptedSeed == "",
		CreatedAt:       now.Unix(),
	}, nil
}

// NextAccountIndex reserves the BIP44 account index for a new account.
func (w *Wallet) NextAccountIndex() uint32 {
	i := w.AccountCount
	w.AccountCount++
	return i
}

// MarkSynced records the end of a completed sync. Older timestamps are
// ignored.
func (w *Wallet) MarkSynced(t time.Time) {
	if ts := t.Unix(); ts > w.LastSyncedAt {
		w.LastSyncedAt = ts
	}
}

func (w *Wallet) LastSynced() time.Time {
	if w.LastSyncedAt == 0 {
		return time.Time{}
	}
	return time.Unix(w.LastSyncedAt, 0)
}
