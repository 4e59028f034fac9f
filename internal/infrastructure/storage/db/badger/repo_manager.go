package dbbadger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const maxConflictRetries = 5

type txContextKey struct{}

type repoManager struct {
	store *badgerhold.Store

	walletRepository      domain.WalletRepository
	accountRepository     domain.AccountRepository
	addressRepository     domain.AddressRepository
	transactionRepository domain.TransactionRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk.
// Every entity lives in the same store so that a db transaction can span
// all of them. An empty baseDbDir opens an in-memory store.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var dbDir string
	if baseDbDir != "" {
		dbDir = filepath.Join(baseDbDir, "wallet")
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallet db: %w", err)
	}

	return &repoManager{
		store:                 store,
		walletRepository:      NewWalletRepositoryImpl(store),
		accountRepository:     NewAccountRepositoryImpl(store),
		addressRepository:     NewAddressRepositoryImpl(store),
		transactionRepository: NewTransactionRepositoryImpl(store),
	}, nil
}

func (r *repoManager) WalletRepository() domain.WalletRepository {
	return r.walletRepository
}

func (r *repoManager) AccountRepository() domain.AccountRepository {
	return r.accountRepository
}

func (r *repoManager) AddressRepository() domain.AddressRepository {
	return r.addressRepository
}

func (r *repoManager) TransactionRepository() domain.TransactionRepository {
	return r.transactionRepository
}

// RunTransaction runs handler in a badger transaction stored in the context
// given to it. A handler called with a context already carrying a
// transaction joins it. Conflicting read-write transactions are retried.
func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := txFromContext(ctx); ok {
		return handler(ctx)
	}

	for i := 0; ; i++ {
		res, err := r.runTransaction(ctx, readOnly, handler)
		if errors.Is(err, badger.ErrConflict) && i < maxConflictRetries {
			log.Debugf("db transaction conflict, retrying (%d)", i+1)
			continue
		}
		return res, err
	}
}

func (r *repoManager) runTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	tx := r.store.Badger().NewTransaction(!readOnly)
	defer tx.Discard()

	res, err := handler(context.WithValue(ctx, txContextKey{}, tx))
	if err != nil {
		return nil, err
	}

	if !readOnly {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *repoManager) Close() {
	if err := r.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close db")
	}
}

func txFromContext(ctx context.Context) (*badger.Txn, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*badger.Txn)
	return tx, ok
}

// withTx runs fn in the transaction carried by ctx, or in a dedicated one.
func withTx(
	ctx context.Context, store *badgerhold.Store, update bool,
	fn func(tx *badger.Txn) error,
) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(tx)
	}
	if update {
		return store.Badger().Update(fn)
	}
	return store.Badger().View(fn)
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	var opts badger.Options
	if dbDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dbDir)
		opts.Compression = options.ZSTD
	}
	opts.Logger = logger

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
