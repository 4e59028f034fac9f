package application_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/application"
	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher(t *testing.T) {
	pubsub := &mockPubSub{}
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	initial := application.State{AccountID: "acc"}
	publisher := application.NewEventPublisher(pubsub, initial)

	connected := initial
	connected.Connected = true
	publisher.Handle(ctx, connected)

	now := time.Unix(1700000000, 0)
	synced := connected
	synced.Sync = domain.SyncSession{
		ID: "s1", WalletID: "w", State: domain.SyncCompleted,
		StartedAt: now, UpdatedAt: now.Add(time.Minute),
	}
	synced.Balance = domain.NewBalance(1000, 0, 0)
	publisher.Handle(ctx, synced)

	// The same session and balance again publish nothing.
	publisher.Handle(ctx, synced)

	// Balance of a newly selected account is not a change.
	other := synced
	other.AccountID = "other"
	other.Balance = domain.Balance{}
	publisher.Handle(ctx, other)

	pubsub.AssertNumberOfCalls(t, "Publish", 3)

	calls := make(map[string]map[string]interface{})
	for _, c := range pubsub.Calls {
		payload := make(map[string]interface{})
		require.NoError(t, json.Unmarshal([]byte(c.Arguments.String(1)), &payload))
		calls[c.Arguments.String(0)] = payload
	}
	require.Equal(t, true, calls["CONNECTION_CHANGED"]["connected"])
	require.Equal(t, "s1", calls["SYNC_COMPLETED"]["session_id"])
	require.Equal(t, "acc", calls["SYNC_COMPLETED"]["account_id"])
	require.Equal(t, float64(now.Add(time.Minute).Unix()), calls["SYNC_COMPLETED"]["completed_at"])
	require.Equal(t, float64(0), calls["BALANCE_CHANGED"]["previous_total"])
	balance := calls["BALANCE_CHANGED"]["balance"].(map[string]interface{})
	require.Equal(t, float64(1000), balance["total"])
}

func TestEventPublisherIgnoresFailures(t *testing.T) {
	pubsub := &mockPubSub{}
	pubsub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("endpoint down"))

	publisher := application.NewEventPublisher(pubsub, application.State{})

	states := make(chan application.State, 2)
	states <- application.State{Connected: true}
	states <- application.State{Connected: false}
	close(states)
	publisher.Run(ctx, states)

	pubsub.AssertNumberOfCalls(t, "Publish", 2)
}
