package pubsub

import "errors"

var (
	// ErrMissingDBPath is returned if no path is given for the db file.
	ErrMissingDBPath = errors.New("missing subscriptions db path")
	// ErrUnknownTopic is returned whenever attempting to subscribe to or
	// publish for an unknown topic.
	ErrUnknownTopic = errors.New("topic is unknown")
	// ErrInvalidEndpoint ...
	ErrInvalidEndpoint = errors.New("webhook endpoint must be a valid URI")
	// ErrSubscriptionNotFound ...
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
