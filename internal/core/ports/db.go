package ports

import (
	"context"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

// RepoManager gives access to every repository and lets run a group of
// mutations atomically.
type RepoManager interface {
	WalletRepository() domain.WalletRepository
	AccountRepository() domain.AccountRepository
	AddressRepository() domain.AddressRepository
	TransactionRepository() domain.TransactionRepository

	// RunTransaction runs handler inside a db transaction that is committed
	// only if handler returns no error. Calls nested in the handler's context
	// join the outer transaction.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}
