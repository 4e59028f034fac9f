package application

import (
	"context"
	"encoding/hex"
	"errors"
	"sort"
	"sync"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/pkg/wallet"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	log "github.com/sirupsen/logrus"
)

const readOnlyTx = true

// Service owns every component of the wallet sync and the active wallet
// account they operate on.
type Service struct {
	network    domain.Network
	gapLimit   uint32
	repo       ports.RepoManager
	gateway    ports.NetworkGateway
	derivation ports.DerivationGateway
	clock      clock.Clock

	discovery  *AddressDiscovery
	sync       *SyncController
	watch      *WatchManager
	reconciler *Reconciler
	dispatcher *EventDispatcher
	notifier   *Notifier

	verifyTicker   ticker.Ticker
	autoSyncTicker ticker.Ticker
	goroutines     *fn.GoroutineManager

	lock      sync.RWMutex
	started   bool
	walletID  string
	accountID string
}

// Tickers lets replace the tickers driving periodic jobs.
type Tickers struct {
	Verify   ticker.Ticker
	AutoSync ticker.Ticker
}

func NewService(cfg Config) (*Service, error) {
	return NewServiceWithTickers(cfg, Tickers{})
}

func NewServiceWithTickers(cfg Config, tickers Tickers) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if tickers.Verify == nil {
		tickers.Verify = ticker.New(cfg.WatchVerifyInterval)
	}
	if tickers.AutoSync == nil && cfg.AutoSyncInterval > 0 {
		tickers.AutoSync = ticker.New(cfg.AutoSyncInterval)
	}

	svc := &Service{
		network:        cfg.Network,
		gapLimit:       cfg.GapLimit,
		repo:           cfg.RepoManager,
		gateway:        cfg.NetworkGateway,
		derivation:     cfg.DerivationGateway,
		clock:          cfg.Clock,
		notifier:       NewNotifier(),
		verifyTicker:   tickers.Verify,
		autoSyncTicker: tickers.AutoSync,
		goroutines:     fn.NewGoroutineManager(),
	}

	svc.discovery = NewAddressDiscovery(cfg.NetworkGateway, cfg.DerivationGateway, cfg.RepoManager)
	svc.sync = NewSyncController(cfg.NetworkGateway, cfg.RepoManager, cfg.Clock)
	svc.watch = NewWatchManager(cfg.NetworkGateway, cfg.RepoManager, cfg.Clock, cfg.WatchRetryDelay)
	svc.reconciler = NewReconciler(
		cfg.NetworkGateway, cfg.RepoManager, cfg.Clock,
		cfg.TxLookupMaxAttempts, cfg.TxLookupBaseDelay,
	)
	svc.dispatcher = NewEventDispatcher(
		svc.reconciler, svc.sync, cfg.RepoManager, svc.activeAccountID,
	)

	svc.sync.OnChange(svc.onSyncChange)
	svc.sync.OnComplete(svc.onSyncComplete)
	svc.watch.OnChange(svc.onWatchChange)
	svc.dispatcher.OnConnectionChange(svc.onConnectionChange)
	svc.dispatcher.OnAccountChange(func(ctx context.Context, accountID string) {
		svc.refreshAccountState(ctx, accountID)
	})

	return svc, nil
}

// Start connects to the network and starts the background jobs.
func (s *Service) Start(ctx context.Context) error {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		return ErrServiceStarted
	}
	s.started = true
	s.lock.Unlock()

	if err := s.gateway.Connect(ctx); err != nil {
		s.lock.Lock()
		s.started = false
		s.lock.Unlock()
		return err
	}
	s.notifier.Update(func(st *State) { st.Connected = true })

	events := s.gateway.Events()
	s.goroutines.Go(context.Background(), func(ctx context.Context) {
		s.dispatcher.Run(ctx, events)
	})
	s.watch.StartPeriodicVerification(s.verifyTicker, s.activeAccountID)
	if s.autoSyncTicker != nil {
		s.goroutines.Go(context.Background(), s.runAutoSync)
	}

	if accountID, ok := s.activeAccountID(); ok {
		s.watch.VerifyNow(accountID)
	}

	log.Infof("wallet sync service started on %s", s.network)
	return nil
}

// Stop cancels any running sync, stops every background job and
// disconnects from the network.
func (s *Service) Stop() {
	s.lock.Lock()
	started := s.started
	s.started = false
	s.lock.Unlock()

	s.sync.Stop()
	s.watch.Stop()
	if started {
		if err := s.gateway.Disconnect(); err != nil {
			log.WithError(err).Warn("failed to disconnect from network")
		}
	}
	s.goroutines.Stop()
	s.notifier.Update(func(st *State) { st.Connected = false })
	log.Info("wallet sync service stopped")
}

func (s *Service) runAutoSync(ctx context.Context) {
	s.autoSyncTicker.Resume()
	defer s.autoSyncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.autoSyncTicker.Ticks():
			if !s.gateway.IsConnected() || s.sync.IsRunning() {
				continue
			}
			if _, ok := s.activeAccountID(); !ok {
				continue
			}
			if _, err := s.Sync(ctx); err != nil {
				log.WithError(err).Warn("periodic sync failed")
			}
		}
	}
}

// GenerateMnemonic returns a new 12 words mnemonic.
func (s *Service) GenerateMnemonic() ([]string, error) {
	return wallet.NewMnemonic(wallet.NewMnemonicOpts{})
}

// CreateWallet stores a new wallet for the mnemonic with its first account
// and makes that account the active one.
func (s *Service) CreateWallet(
	ctx context.Context, mnemonic []string, passphrase string,
) (*domain.Wallet, error) {
	if !wallet.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if passphrase == "" {
		return nil, ErrMissingPassphrase
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	encryptedSeed, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  hex.EncodeToString(seed),
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, err
	}

	w, err := domain.NewWallet(
		s.network, encryptedSeed, wallet.Fingerprint(seed), s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}
	account, err := s.newAccount(w, seed, "")
	if err != nil {
		return nil, err
	}

	if err := s.storeWallet(ctx, w, account); err != nil {
		return nil, err
	}
	log.Infof("created wallet %s on %s", w.ID, w.Network)

	if err := s.SelectAccount(ctx, w.ID, account.Index); err != nil {
		return nil, err
	}
	return w, nil
}

// ImportWatchOnlyWallet stores a wallet made of a single account known only
// by its extended public key.
func (s *Service) ImportWatchOnlyWallet(
	ctx context.Context, xpub string,
) (*domain.Wallet, error) {
	if _, err := s.derivation.DeriveAddress(
		xpub, s.network, domain.ExternalChain, 0,
	); err != nil {
		return nil, err
	}

	w, err := domain.NewWallet(
		s.network, "", wallet.Fingerprint([]byte(xpub)), s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}
	account, err := s.newAccount(w, nil, xpub)
	if err != nil {
		return nil, err
	}

	if err := s.storeWallet(ctx, w, account); err != nil {
		return nil, err
	}
	log.Infof("imported watch-only wallet %s on %s", w.ID, w.Network)

	if err := s.SelectAccount(ctx, w.ID, account.Index); err != nil {
		return nil, err
	}
	return w, nil
}

// AddAccount derives the next account of the wallet. The passphrase is
// needed to decrypt the seed.
func (s *Service) AddAccount(
	ctx context.Context, walletID, passphrase string,
) (*domain.Account, error) {
	res, err := s.repo.RunTransaction(
		ctx, !readOnlyTx, func(ctx context.Context) (interface{}, error) {
			w, err := s.repo.WalletRepository().GetWallet(ctx, walletID)
			if err != nil {
				return nil, err
			}
			if w.WatchOnly {
				return nil, domain.ErrWatchOnlyWallet
			}

			seedHex, err := wallet.Decrypt(wallet.DecryptOpts{
				CypherText: w.EncryptedSeed,
				Passphrase: passphrase,
			})
			if err != nil {
				return nil, err
			}
			seed, err := hex.DecodeString(seedHex)
			if err != nil {
				return nil, err
			}

			var account *domain.Account
			if err := s.repo.WalletRepository().UpdateWallet(
				ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
					acc, err := s.newAccount(w, seed, "")
					if err != nil {
						return nil, err
					}
					account = acc
					return w, nil
				},
			); err != nil {
				return nil, err
			}

			if err := s.repo.AccountRepository().AddAccount(ctx, account); err != nil {
				return nil, err
			}
			return account, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.(*domain.Account), nil
}

// DeleteWallet removes the wallet with all its accounts and addresses, and
// the txs no other account references.
func (s *Service) DeleteWallet(ctx context.Context, walletID string) error {
	if s.isActiveWallet(walletID) {
		s.sync.CancelSync()
		s.clearActive()
	}

	_, err := s.repo.RunTransaction(
		ctx, !readOnlyTx, func(ctx context.Context) (interface{}, error) {
			if _, err := s.repo.WalletRepository().GetWallet(ctx, walletID); err != nil {
				return nil, err
			}
			accounts, err := s.repo.AccountRepository().ListAccountsForWallet(ctx, walletID)
			if err != nil {
				return nil, err
			}

			for _, account := range accounts {
				if err := s.deleteAccount(ctx, account); err != nil {
					return nil, err
				}
				s.watch.ResetAccount(account.ID)
			}
			return nil, s.repo.WalletRepository().DeleteWallet(ctx, walletID)
		},
	)
	if err != nil {
		return err
	}

	log.Infof("deleted wallet %s", walletID)
	return nil
}

func (s *Service) deleteAccount(ctx context.Context, account domain.Account) error {
	txRepo := s.repo.TransactionRepository()
	for _, txid := range account.TxIDs {
		tx, err := txRepo.GetTransaction(ctx, txid)
		if err != nil {
			if errors.Is(err, domain.ErrTransactionNotFound) {
				continue
			}
			return err
		}
		tx.UnlinkAccount(account.ID)
		if len(tx.AccountIDs) == 0 {
			if err := txRepo.DeleteTransaction(ctx, txid); err != nil {
				return err
			}
			continue
		}
		if err := txRepo.UpdateTransaction(
			ctx, txid, func(t *domain.Transaction) (*domain.Transaction, error) {
				t.UnlinkAccount(account.ID)
				return t, nil
			},
		); err != nil {
			return err
		}
	}

	if err := s.repo.AddressRepository().DeleteAddressesForAccount(
		ctx, account.ID,
	); err != nil {
		return err
	}
	return s.repo.AccountRepository().DeleteAccount(ctx, account.ID)
}

// SelectAccount makes the given account the one every operation acts on. A
// sync running for another account is cancelled.
func (s *Service) SelectAccount(
	ctx context.Context, walletID string, accountIndex uint32,
) error {
	accountID := domain.AccountID(walletID, accountIndex)
	account, err := s.repo.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	s.lock.Lock()
	changed := s.accountID != account.ID
	s.walletID = walletID
	s.accountID = account.ID
	s.lock.Unlock()

	if changed {
		s.sync.CancelSync()
	}
	s.notifier.Update(func(st *State) {
		st.WalletID = walletID
		st.AccountID = account.ID
		st.Balance = account.Balance
		st.MempoolTxCount = account.MempoolTxCount
		st.PendingWatches = s.watch.PendingCount(account.ID)
	})
	return nil
}

// ActiveAccount returns the ids of the selected wallet and account.
func (s *Service) ActiveAccount() (string, string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.walletID, s.accountID, s.accountID != ""
}

func (s *Service) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	return s.repo.WalletRepository().ListWallets(ctx)
}

func (s *Service) ListAccounts(
	ctx context.Context, walletID string,
) ([]domain.Account, error) {
	return s.repo.AccountRepository().ListAccountsForWallet(ctx, walletID)
}

// DiscoverAddresses scans the active account for used addresses, stores
// them and registers the new ones with the network.
func (s *Service) DiscoverAddresses(ctx context.Context) (*DiscoveryResult, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return nil, domain.ErrNoContext
	}
	account, err := s.repo.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	gapLimit := account.GapLimit
	if gapLimit == 0 {
		gapLimit = s.gapLimit
	}
	result, err := s.discovery.Discover(ctx, *account, s.network, gapLimit)
	if err != nil {
		return nil, err
	}

	fresh, err := s.discovery.Persist(ctx, accountID, result)
	if err != nil {
		return nil, err
	}
	s.watchAddresses(ctx, accountID, fresh)
	return result, nil
}

func (s *Service) NextReceiveAddress(ctx context.Context) (*domain.WatchedAddress, error) {
	return s.nextAddress(ctx, domain.ExternalChain)
}

func (s *Service) NextChangeAddress(ctx context.Context) (*domain.WatchedAddress, error) {
	return s.nextAddress(ctx, domain.InternalChain)
}

func (s *Service) nextAddress(
	ctx context.Context, chain domain.Chain,
) (*domain.WatchedAddress, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return nil, domain.ErrNoContext
	}
	addr, err := s.discovery.NextAddress(ctx, accountID, s.network, chain)
	if err != nil {
		return nil, err
	}
	s.watchAddresses(ctx, accountID, []domain.WatchedAddress{*addr})
	return addr, nil
}

// Sync discovers addresses of the active account and starts a sync session.
func (s *Service) Sync(ctx context.Context) (string, error) {
	walletID, _, ok := s.ActiveAccount()
	if !ok {
		return "", domain.ErrNoContext
	}
	if !s.gateway.IsConnected() {
		return "", domain.ErrNotConnected
	}
	if id, running := s.sync.CurrentSessionID(); running {
		return id, nil
	}

	if _, err := s.DiscoverAddresses(ctx); err != nil {
		return "", err
	}
	return s.sync.StartSync(ctx, walletID)
}

func (s *Service) CancelSync() {
	s.sync.CancelSync()
}

func (s *Service) SyncSession() domain.SyncSession {
	return s.sync.Session()
}

// RefreshBalance recomputes the balance of the active account.
func (s *Service) RefreshBalance(ctx context.Context) (domain.Balance, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return domain.Balance{}, domain.ErrNoContext
	}
	balance, err := s.reconciler.RecomputeAccountBalance(ctx, accountID)
	if err != nil {
		return domain.Balance{}, err
	}
	s.refreshAccountState(ctx, accountID)
	return balance, nil
}

// Balance returns the stored balance of the active account.
func (s *Service) Balance(ctx context.Context) (domain.Balance, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return domain.Balance{}, domain.ErrNoContext
	}
	account, err := s.repo.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return domain.Balance{}, err
	}
	return account.Balance, nil
}

// Transactions returns the txs of the active account, newest first.
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return nil, domain.ErrNoContext
	}
	account, err := s.repo.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.TransactionRepository().GetTransactions(ctx, account.TxIDs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
	return txs, nil
}

// Addresses returns the watched addresses of the active account.
func (s *Service) Addresses(ctx context.Context) ([]domain.WatchedAddress, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return nil, domain.ErrNoContext
	}
	return s.repo.AddressRepository().ListAddressesForAccount(ctx, accountID)
}

// VerifyWatchedAddresses runs a verification pass of the active account.
func (s *Service) VerifyWatchedAddresses(
	ctx context.Context,
) (domain.VerificationStatus, error) {
	accountID, ok := s.activeAccountID()
	if !ok {
		return domain.VerificationStatus{}, domain.ErrNoContext
	}
	return s.watch.Verify(ctx, accountID), nil
}

func (s *Service) State() State {
	return s.notifier.Snapshot()
}

// Subscribe returns a channel of state changes and the function to stop
// receiving them.
func (s *Service) Subscribe() (<-chan State, func()) {
	return s.notifier.Subscribe()
}

func (s *Service) watchAddresses(
	ctx context.Context, accountID string, addresses []domain.WatchedAddress,
) {
	if len(addresses) == 0 {
		return
	}
	failures := s.watch.RegisterAddresses(ctx, addresses, accountID)
	retry := make([]domain.WatchedAddress, 0, len(failures))
	byAddress := make(map[string]domain.WatchedAddress, len(addresses))
	for _, a := range addresses {
		byAddress[a.Address] = a
	}
	for _, f := range failures {
		if f.Recoverable() {
			retry = append(retry, byAddress[f.Address])
		}
	}
	s.watch.ScheduleRetry(retry, accountID)
}

func (s *Service) onSyncChange(session domain.SyncSession) {
	s.notifier.Update(func(st *State) {
		st.Sync = session
		st.SyncStatus = session.Status()
		if session.LastError != "" {
			st.LastSyncError = session.LastError
		}
	})
}

func (s *Service) onSyncComplete(ctx context.Context, session domain.SyncSession) {
	walletID, accountID, ok := s.ActiveAccount()
	if !ok || walletID != session.WalletID {
		return
	}

	if _, err := s.reconciler.UpdateTransactions(ctx, accountID); err != nil {
		log.WithError(err).Warn("failed to update transactions after sync")
	}
	if _, err := s.reconciler.RecomputeAccountBalance(ctx, accountID); err != nil {
		log.WithError(err).Warn("failed to update balance after sync")
	}
	if _, err := s.reconciler.UpdateMempoolTransactionCount(ctx, accountID); err != nil {
		log.WithError(err).Warn("failed to update mempool tx count after sync")
	}
	s.refreshAccountState(ctx, accountID)
}

func (s *Service) onWatchChange() {
	accountID, _ := s.activeAccountID()
	pending := s.watch.PendingCount(accountID)
	status := s.watch.Status()
	s.notifier.Update(func(st *State) {
		st.PendingWatches = pending
		st.Verification = status
	})
}

func (s *Service) onConnectionChange(ctx context.Context, connected bool) {
	s.notifier.Update(func(st *State) { st.Connected = connected })
	if !connected {
		log.Warn("network disconnected, cancelling sync")
		s.sync.CancelSync()
		return
	}

	log.Info("network connected")
	if accountID, ok := s.activeAccountID(); ok {
		s.watch.RetryPending(accountID)
		s.watch.VerifyNow(accountID)
	}
}

func (s *Service) refreshAccountState(ctx context.Context, accountID string) {
	account, err := s.repo.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		log.WithError(err).Debugf("failed to load account %s", accountID)
		return
	}
	if active, ok := s.activeAccountID(); !ok || active != accountID {
		return
	}
	s.notifier.Update(func(st *State) {
		st.Balance = account.Balance
		st.MempoolTxCount = account.MempoolTxCount
	})
}

func (s *Service) newAccount(
	w *domain.Wallet, seed []byte, xpub string,
) (*domain.Account, error) {
	params, err := wallet.NetworkParams(w.Network.String())
	if err != nil {
		return nil, err
	}
	index := w.NextAccountIndex()
	if xpub == "" {
		xpub, err = s.derivation.DeriveExtendedPublicKey(seed, w.Network, index)
		if err != nil {
			return nil, err
		}
	}
	path := wallet.AccountPath(params.HDCoinType, index).String()
	return domain.NewAccount(w.ID, index, xpub, path, s.gapLimit)
}

func (s *Service) storeWallet(
	ctx context.Context, w *domain.Wallet, account *domain.Account,
) error {
	_, err := s.repo.RunTransaction(
		ctx, !readOnlyTx, func(ctx context.Context) (interface{}, error) {
			if err := s.repo.WalletRepository().AddWallet(ctx, w); err != nil {
				return nil, err
			}
			return nil, s.repo.AccountRepository().AddAccount(ctx, account)
		},
	)
	return err
}

func (s *Service) activeAccountID() (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.accountID, s.accountID != ""
}

func (s *Service) isActiveWallet(walletID string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.walletID == walletID
}

func (s *Service) clearActive() {
	s.lock.Lock()
	s.walletID = ""
	s.accountID = ""
	s.lock.Unlock()
	s.notifier.Update(func(st *State) {
		st.WalletID = ""
		st.AccountID = ""
		st.Balance = domain.Balance{}
		st.MempoolTxCount = 0
		st.PendingWatches = 0
	})
}
