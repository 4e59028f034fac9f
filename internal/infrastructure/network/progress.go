package network

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
)

// progressStream walks the sync stages one Recv at a time. Downloading
// fetches the history of one watched address per call.
type progressStream struct {
	ctx     context.Context
	gateway *gateway

	lock      sync.Mutex
	stage     domain.SyncStage
	done      bool
	addresses []string
	next      int
	tip       uint32
	startedAt time.Time
}

func newProgressStream(ctx context.Context, g *gateway) *progressStream {
	return &progressStream{
		ctx:       ctx,
		gateway:   g,
		stage:     domain.StageConnecting,
		startedAt: g.clock.Now(),
	}
}

func (s *progressStream) Recv() (domain.SyncProgress, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.done {
		return domain.SyncProgress{}, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return domain.SyncProgress{}, err
	}
	if !s.gateway.IsConnected() {
		return domain.SyncProgress{}, domain.ErrNotConnected
	}

	progress, err := s.step()
	if err != nil {
		s.done = true
		return domain.SyncProgress{}, err
	}
	return progress, nil
}

func (s *progressStream) step() (domain.SyncProgress, error) {
	switch s.stage {
	case domain.StageConnecting:
		s.stage = domain.StageQueryingHeight
		return s.progress(domain.StageConnecting, 0), nil

	case domain.StageQueryingHeight:
		height, err := s.gateway.explorerSvc.GetBlockHeight(s.ctx)
		if err != nil {
			return domain.SyncProgress{}, fmt.Errorf("%w: %s", domain.ErrNetwork, err)
		}
		s.gateway.setTip(height)
		s.tip = height
		s.addresses = s.gateway.watchedAddresses()
		s.stage = domain.StageDownloading
		return s.progress(domain.StageQueryingHeight, 5), nil

	case domain.StageDownloading:
		if s.next >= len(s.addresses) {
			s.stage = domain.StageValidating
			return s.step()
		}
		address := s.addresses[s.next]
		if _, err := s.gateway.explorerSvc.GetTransactionsForAddress(
			s.ctx, address,
		); err != nil {
			return domain.SyncProgress{}, fmt.Errorf(
				"%w: failed to download history of %s: %s",
				domain.ErrNetwork, address, err,
			)
		}
		s.next++
		pct := 5 + 85*float64(s.next)/float64(len(s.addresses))
		return s.progress(domain.StageDownloading, pct), nil

	case domain.StageValidating:
		s.stage = domain.StageStoring
		return s.progress(domain.StageValidating, 95), nil

	case domain.StageStoring:
		s.stage = domain.StageComplete
		return s.progress(domain.StageStoring, 98), nil

	default:
		s.done = true
		return s.progress(domain.StageComplete, 100), nil
	}
}

func (s *progressStream) progress(
	stage domain.SyncStage, percentage float64,
) domain.SyncProgress {
	p := domain.SyncProgress{
		CurrentHeight:  s.tip,
		TotalHeight:    s.tip,
		Percentage:     percentage,
		Stage:          stage,
		ConnectedPeers: 1,
	}

	elapsed := s.gateway.clock.Now().Sub(s.startedAt)
	if s.next > 0 && elapsed > 0 {
		rate := float64(s.next) / elapsed.Seconds()
		p.HeadersPerSecond = rate
		if remaining := len(s.addresses) - s.next; remaining > 0 {
			p.ETA = time.Duration(float64(remaining) / rate * float64(time.Second))
		}
	}
	return p
}
