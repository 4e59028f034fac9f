package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// EventPublisher publishes the relevant changes of the service state on a
// pubsub service.
type EventPublisher struct {
	pubsub        ports.PubSub
	last          State
	lastCompleted string
}

// NewEventPublisher returns a publisher that compares the next states with
// the initial one.
func NewEventPublisher(pubsub ports.PubSub, initial State) *EventPublisher {
	p := &EventPublisher{pubsub: pubsub, last: initial}
	if initial.Sync.State == domain.SyncCompleted {
		p.lastCompleted = initial.Sync.ID
	}
	return p
}

// Run publishes the changes received from states until the channel is
// closed or ctx is done.
func (p *EventPublisher) Run(ctx context.Context, states <-chan State) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			p.Handle(ctx, st)
		}
	}
}

// Handle publishes a message for every change between the last state seen
// and st.
func (p *EventPublisher) Handle(ctx context.Context, st State) {
	prev := p.last
	p.last = st

	if st.Connected != prev.Connected {
		p.publish(ctx, ConnectionChanged, map[string]interface{}{
			"connected": st.Connected,
		})
	}

	if st.Sync.State == domain.SyncCompleted && st.Sync.ID != p.lastCompleted {
		p.lastCompleted = st.Sync.ID
		p.publish(ctx, SyncCompleted, map[string]interface{}{
			"session_id":   st.Sync.ID,
			"wallet_id":    st.Sync.WalletID,
			"account_id":   st.AccountID,
			"started_at":   st.Sync.StartedAt.Unix(),
			"completed_at": st.Sync.UpdatedAt.Unix(),
		})
	}

	// Selecting another account is not a balance change.
	if st.AccountID != "" && st.AccountID == prev.AccountID &&
		st.Balance != prev.Balance {
		p.publish(ctx, BalanceChanged, map[string]interface{}{
			"account_id":     st.AccountID,
			"balance":        balancePayload(st.Balance),
			"previous_total": prev.Balance.Total,
		})
	}
}

func (p *EventPublisher) publish(
	ctx context.Context, code int, payload map[string]interface{},
) {
	topic, ok := p.pubsub.TopicsByCode()[code]
	if !ok {
		log.Debugf("pubsub does not support topic %d, skipping", code)
		return
	}
	message, _ := json.Marshal(payload)

	if err := p.pubsub.Publish(ctx, topic.Label(), string(message)); err != nil {
		log.WithError(fmt.Errorf(
			"an error occured while publishing message for topic %s: %w",
			topic.Label(), err,
		)).Warn("failed to notify subscribers")
	}
}

func balancePayload(b domain.Balance) map[string]uint64 {
	return map[string]uint64{
		"confirmed":       b.Confirmed,
		"pending":         b.Pending,
		"instant_locked":  b.InstantLocked,
		"mempool":         b.Mempool,
		"mempool_instant": b.MempoolInstant,
		"total":           b.Total,
	}
}
