package pubsub

import (
	"encoding/json"
	"net/url"

	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/google/uuid"
)

// Subscription is a webhook endpoint notified for the messages of a topic.
// Messages for secured subscriptions carry a JWT signed with Secret.
type Subscription struct {
	ID       string `json:"id"`
	Event    Topic  `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

type subscriptions []Subscription

func (s subscriptions) toPortable() []ports.Subscription {
	subs := make([]ports.Subscription, 0, len(s))
	for i := range s {
		sub := s[i]
		subs = append(subs, &sub)
	}
	return subs
}

func NewSubscription(topic Topic, endpoint, secret string) (*Subscription, error) {
	if _, ok := topicToString[topic]; !ok {
		return nil, ErrUnknownTopic
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, ErrInvalidEndpoint
	}
	id := uuid.New().String()
	return &Subscription{id, topic, endpoint, secret}, nil
}

func NewSubscriptionFromBytes(buf []byte) (*Subscription, error) {
	sub := &Subscription{}
	if err := json.Unmarshal(buf, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Subscription) Topic() ports.Topic {
	return s.Event
}

func (s *Subscription) Id() string {
	return s.ID
}

func (s *Subscription) NotifyAt() string {
	return s.Endpoint
}

func (s *Subscription) IsSecured() bool {
	return len(s.Secret) > 0
}

func (s *Subscription) Serialize() []byte {
	b, _ := json.Marshal(*s)
	return b
}
