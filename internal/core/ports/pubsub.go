package ports

import "context"

type Topic interface {
	Code() int
	Label() string
}

// Subscription is a client registered for the messages of a topic.
type Subscription interface {
	Id() string
	Topic() Topic
	NotifyAt() string
	IsSecured() bool
}

// PubSub delivers wallet events to the clients subscribed for them.
type PubSub interface {
	// Subscribe registers the endpoint for a topic. The optional secret is
	// used to authenticate the messages.
	Subscribe(topic, endpoint, secret string) (string, error)
	// Unsubscribe removes the subscription with the given id.
	Unsubscribe(id string) error
	// ListSubscriptionsForTopic returns the clients receiving the messages of
	// the topic, including those subscribed for every topic.
	ListSubscriptionsForTopic(topic string) ([]Subscription, error)
	// Publish sends the message to every client subscribed for the topic.
	Publish(ctx context.Context, topic, message string) error
	// TopicsByCode returns the supported topics mapped by their code.
	TopicsByCode() map[int]Topic
	Close() error
}
