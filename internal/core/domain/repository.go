package domain

import "context"

// WalletRepository is the abstraction for any kind of database intended to
// persist Wallets.
type WalletRepository interface {
	// AddWallet adds a new wallet. It returns ErrDuplicateWallet if a wallet
	// with the same fingerprint already exists on the same network.
	AddWallet(ctx context.Context, wallet *Wallet) error
	// GetWallet returns the wallet with the given id.
	GetWallet(ctx context.Context, walletID string) (*Wallet, error)
	// GetWalletByFingerprint returns the wallet of the given seed on the
	// given network.
	GetWalletByFingerprint(
		ctx context.Context, fingerprint string, network Network,
	) (*Wallet, error)
	// ListWallets returns all stored wallets.
	ListWallets(ctx context.Context) ([]Wallet, error)
	// UpdateWallet updates the state of a wallet. The closure function let's
	// to commit multiple changes to a wallet in a transactional way.
	UpdateWallet(
		ctx context.Context,
		walletID string, updateFn func(w *Wallet) (*Wallet, error),
	) error
	// DeleteWallet removes the wallet, not its accounts.
	DeleteWallet(ctx context.Context, walletID string) error
}

// AccountRepository is the abstraction for any kind of database intended to
// persist Accounts.
type AccountRepository interface {
	// AddAccount adds a new account.
	AddAccount(ctx context.Context, account *Account) error
	// GetAccount returns the account with the given id.
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	// ListAccountsForWallet returns the accounts of a wallet sorted by index.
	ListAccountsForWallet(ctx context.Context, walletID string) ([]Account, error)
	// UpdateAccount updates the state of an account.
	UpdateAccount(
		ctx context.Context,
		accountID string, updateFn func(a *Account) (*Account, error),
	) error
	// DeleteAccount removes the account, not its addresses.
	DeleteAccount(ctx context.Context, accountID string) error
}

// AddressRepository is the abstraction for any kind of database intended to
// persist WatchedAddresses.
type AddressRepository interface {
	// AddAddresses stores the given addresses, skipping those already known
	// either by value or by account position. It returns the number of
	// addresses actually added.
	AddAddresses(ctx context.Context, addresses ...WatchedAddress) (int, error)
	// GetAddress returns the watched address with the given value.
	GetAddress(ctx context.Context, address string) (*WatchedAddress, error)
	// GetAddresses returns the watched addresses among the given ones,
	// ignoring those not stored.
	GetAddresses(ctx context.Context, addresses []string) ([]WatchedAddress, error)
	// ListAddressesForAccount returns the addresses of an account sorted by
	// chain and index.
	ListAddressesForAccount(
		ctx context.Context, accountID string,
	) ([]WatchedAddress, error)
	// UpdateAddress updates the state of a watched address.
	UpdateAddress(
		ctx context.Context,
		address string, updateFn func(a *WatchedAddress) (*WatchedAddress, error),
	) error
	// DeleteAddressesForAccount removes every address of an account.
	DeleteAddressesForAccount(ctx context.Context, accountID string) error
}

// TransactionRepository is the abstraction for any kind of database intended
// to persist Transactions.
type TransactionRepository interface {
	// AddTransaction adds a new tx. It returns ErrTransactionAlreadyExists if
	// the txid is already stored.
	AddTransaction(ctx context.Context, tx *Transaction) error
	// GetTransaction returns the tx with the given id.
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)
	// GetTransactions returns the stored txs among the given ids.
	GetTransactions(ctx context.Context, txids []string) ([]Transaction, error)
	// UpdateTransaction updates the state of a tx.
	UpdateTransaction(
		ctx context.Context,
		txid string, updateFn func(t *Transaction) (*Transaction, error),
	) error
	// DeleteTransaction removes the tx.
	DeleteTransaction(ctx context.Context, txid string) error
}
