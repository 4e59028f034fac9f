package pubsub

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/pkg/httputil"
	"github.com/golang-jwt/jwt"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRequestTimeout = 15 * time.Second
	issuer                = "walletsyncd"
)

type Opts struct {
	// DBPath is the bolt file where subscriptions are persisted.
	DBPath         string
	RequestTimeout time.Duration
}

type service struct {
	store      *store
	httpClient *httputil.Client
}

// NewService returns a pubsub service that notifies webhook endpoints with
// a POST request for every published message.
func NewService(opts Opts) (ports.PubSub, error) {
	if opts.DBPath == "" {
		return nil, ErrMissingDBPath
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	st, err := newStore(opts.DBPath)
	if err != nil {
		return nil, err
	}

	return &service{
		store: st,
		httpClient: httputil.NewClient(httputil.ClientOpts{
			Name:    "webhooks",
			Timeout: timeout,
		}),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	t, ok := TopicFromString(topic)
	if !ok {
		return "", ErrUnknownTopic
	}
	sub, err := NewSubscription(t, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.add(sub); err != nil {
		return "", err
	}
	log.Debugf("added subscription %s for topic %s", sub.ID, t)
	return sub.ID, nil
}

func (ws *service) Unsubscribe(id string) error {
	found, err := ws.store.remove(id)
	if err != nil {
		return err
	}
	if !found {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (ws *service) ListSubscriptionsForTopic(topic string) ([]ports.Subscription, error) {
	t, ok := TopicFromString(topic)
	if !ok {
		return nil, ErrUnknownTopic
	}
	subs, err := ws.listSubscriptionsForTopic(t)
	if err != nil {
		return nil, err
	}
	return subs.toPortable(), nil
}

func (ws *service) Publish(ctx context.Context, topic, message string) error {
	t, ok := TopicFromString(topic)
	if !ok {
		return ErrUnknownTopic
	}
	subs, err := ws.listSubscriptionsForTopic(t)
	if err != nil {
		return err
	}

	// A failing endpoint must not prevent notifying the others.
	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(ctx, t, sub, message) })
	}
	return eg.Wait()
}

func (ws *service) TopicsByCode() map[int]ports.Topic {
	topics := make(map[int]ports.Topic)
	for topic := range topicToString {
		topics[topic.Code()] = topic
	}
	return topics
}

func (ws *service) Close() error {
	return ws.store.close()
}

func (ws *service) listSubscriptionsForTopic(topic Topic) (subscriptions, error) {
	subs, err := ws.store.listForTopic(topic)
	if err != nil {
		return nil, err
	}
	if topic != AllTopics {
		subsForAnyTopic, err := ws.store.listForTopic(AllTopics)
		if err != nil {
			return nil, err
		}
		subs = append(subs, subsForAnyTopic...)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (ws *service) doRequest(
	ctx context.Context, topic Topic, sub Subscription, payload string,
) error {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if sub.IsSecured() {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
			Issuer:   issuer,
			Subject:  topic.String(),
			IssuedAt: time.Now().Unix(),
		})
		tokenString, err := token.SignedString([]byte(sub.Secret))
		if err != nil {
			return err
		}
		headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
	}

	status, resp, err := ws.httpClient.NewHTTPRequest(
		ctx, http.MethodPost, sub.Endpoint, payload, headers,
	)
	if err != nil {
		return fmt.Errorf("failed to notify %s: %w", sub.Endpoint, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to notify %s: status %d: %s", sub.Endpoint, status, resp)
	}
	return nil
}
