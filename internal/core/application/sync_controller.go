package application

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
)

// SyncController drives sync sessions. At most one session is current at a
// time; a consumer whose session is no longer current stops silently and
// anything it fetched meanwhile is dropped.
type SyncController struct {
	network    ports.NetworkGateway
	repo       ports.RepoManager
	clock      clock.Clock
	goroutines *fn.GoroutineManager

	onChange   func(domain.SyncSession)
	onComplete func(ctx context.Context, session domain.SyncSession)

	lock      sync.Mutex
	currentID string
	session   domain.SyncSession
	cancel    context.CancelFunc
}

func NewSyncController(
	network ports.NetworkGateway, repo ports.RepoManager, clk clock.Clock,
) *SyncController {
	return &SyncController{
		network:    network,
		repo:       repo,
		clock:      clk,
		goroutines: fn.NewGoroutineManager(),
		session:    domain.SyncSession{State: domain.SyncIdle},
	}
}

// OnChange registers the handler called with a copy of the session at every
// state or progress change. It must be set before the first StartSync.
func (c *SyncController) OnChange(handler func(domain.SyncSession)) {
	c.onChange = handler
}

// OnComplete registers the handler called after a session completes.
func (c *SyncController) OnComplete(
	handler func(ctx context.Context, session domain.SyncSession),
) {
	c.onComplete = handler
}

// StartSync starts a new session for the wallet and returns its id. If a
// session is already running its id is returned and nothing else happens.
func (c *SyncController) StartSync(
	ctx context.Context, walletID string,
) (string, error) {
	return c.start(ctx, walletID, false)
}

// RestartSync starts a new session even if one is running. The running
// session is superseded.
func (c *SyncController) RestartSync(
	ctx context.Context, walletID string,
) (string, error) {
	return c.start(ctx, walletID, true)
}

// start reserves the session slot and opens the progress stream. Checking
// for a running session and reserving the slot happen under the same lock,
// so concurrent StartSync calls share a single session.
func (c *SyncController) start(
	ctx context.Context, walletID string, supersede bool,
) (string, error) {
	if !c.network.IsConnected() {
		return "", domain.ErrNotConnected
	}

	c.lock.Lock()
	if !supersede && c.currentID != "" {
		id := c.currentID
		c.lock.Unlock()
		return id, nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	now := c.clock.Now()
	sessionID := uuid.New().String()
	token, cancel := context.WithCancel(context.Background())
	c.currentID = sessionID
	c.cancel = cancel
	c.session = domain.SyncSession{
		ID:        sessionID,
		WalletID:  walletID,
		State:     domain.SyncRunning,
		Progress:  domain.SyncProgress{Stage: domain.StageConnecting},
		StartedAt: now,
		UpdatedAt: now,
	}
	snapshot := c.session
	c.lock.Unlock()

	c.notify(snapshot)

	stream, err := c.network.SyncProgress(ctx)
	if err != nil {
		c.fail(sessionID, err)
		return "", err
	}

	ok := c.goroutines.Go(context.Background(), func(ctx context.Context) {
		c.consume(ctx, token, sessionID, stream)
	})
	if !ok {
		c.fail(sessionID, ErrServiceStopped)
		return "", ErrServiceStopped
	}

	log.Infof("sync session %s started for wallet %s", sessionID, walletID)
	return sessionID, nil
}

// consume reads the progress stream until it ends, fails, or the session is
// superseded or cancelled.
func (c *SyncController) consume(
	ctx, token context.Context, sessionID string, stream ports.ProgressStream,
) {
	for {
		if token.Err() != nil || !c.isCurrent(sessionID) {
			log.Debugf("sync session %s no longer current, stopping", sessionID)
			return
		}

		progress, err := stream.Recv()

		// Results of a call started before supersession are dropped.
		if token.Err() != nil || !c.isCurrent(sessionID) {
			log.Debugf("dropping progress of stale sync session %s", sessionID)
			return
		}
		if errors.Is(err, io.EOF) {
			if err := c.CompleteSync(ctx, sessionID); err != nil {
				log.WithError(err).Warnf("failed to complete sync session %s", sessionID)
			}
			return
		}
		if err != nil {
			c.fail(sessionID, err)
			return
		}

		switch progress.Stage {
		case domain.StageComplete:
			c.UpdateProgress(sessionID, progress)
			if err := c.CompleteSync(ctx, sessionID); err != nil {
				log.WithError(err).Warnf("failed to complete sync session %s", sessionID)
			}
			return
		case domain.StageFailed:
			c.fail(sessionID, errors.New("network reported sync failure"))
			return
		default:
			c.UpdateProgress(sessionID, progress)
		}
	}
}

// CancelSync signals the current session to stop and resets the controller.
// The running network call is not interrupted, its result is dropped.
func (c *SyncController) CancelSync() {
	c.lock.Lock()
	if c.currentID == "" {
		c.lock.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	id := c.currentID
	c.currentID = ""
	c.session.State = domain.SyncCancelled
	c.session.UpdatedAt = c.clock.Now()
	snapshot := c.session
	c.lock.Unlock()

	log.Infof("sync session %s cancelled", id)
	c.notify(snapshot)
}

// UpdateProgress applies the progress report if sessionID is the current
// session. It returns false if the report was dropped.
func (c *SyncController) UpdateProgress(
	sessionID string, progress domain.SyncProgress,
) bool {
	c.lock.Lock()
	if sessionID == "" || sessionID != c.currentID {
		c.lock.Unlock()
		return false
	}
	c.session.Progress = progress
	c.session.UpdatedAt = c.clock.Now()
	snapshot := c.session
	c.lock.Unlock()

	c.notify(snapshot)
	return true
}

// CompleteSync closes the current session as completed and stores the sync
// time on the wallet.
func (c *SyncController) CompleteSync(ctx context.Context, sessionID string) error {
	c.lock.Lock()
	if sessionID == "" || sessionID != c.currentID {
		c.lock.Unlock()
		return domain.ErrInvalidState
	}
	now := c.clock.Now()
	c.currentID = ""
	c.cancel = nil
	c.session.State = domain.SyncCompleted
	c.session.Progress.Stage = domain.StageComplete
	c.session.Progress.Percentage = 100
	c.session.UpdatedAt = now
	snapshot := c.session
	c.lock.Unlock()

	c.notify(snapshot)
	log.Infof("sync session %s completed", sessionID)

	if _, err := c.repo.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			return nil, c.repo.WalletRepository().UpdateWallet(
				ctx, snapshot.WalletID,
				func(w *domain.Wallet) (*domain.Wallet, error) {
					w.MarkSynced(now)
					return w, nil
				},
			)
		},
	); err != nil {
		return err
	}

	if c.onComplete != nil {
		c.onComplete(ctx, snapshot)
	}
	return nil
}

// fail resets the controller to idle, keeping the error for display.
func (c *SyncController) fail(sessionID string, err error) {
	c.lock.Lock()
	if sessionID != c.currentID {
		c.lock.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.currentID = ""
	c.session.State = domain.SyncIdle
	c.session.Progress.Stage = domain.StageFailed
	c.session.LastError = err.Error()
	c.session.UpdatedAt = c.clock.Now()
	snapshot := c.session
	c.lock.Unlock()

	log.WithError(err).Warnf("sync session %s failed", sessionID)
	c.notify(snapshot)
}

// CurrentSessionID returns the id of the running session, if any.
func (c *SyncController) CurrentSessionID() (string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.currentID, c.currentID != ""
}

// Session returns a copy of the last known session.
func (c *SyncController) Session() domain.SyncSession {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.session
}

func (c *SyncController) IsRunning() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.session.State == domain.SyncRunning
}

// Stop cancels the current session and waits for its consumer to return.
func (c *SyncController) Stop() {
	c.CancelSync()
	c.goroutines.Stop()
}

func (c *SyncController) isCurrent(sessionID string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return sessionID == c.currentID
}

func (c *SyncController) notify(session domain.SyncSession) {
	if c.onChange != nil {
		c.onChange(session)
	}
}
