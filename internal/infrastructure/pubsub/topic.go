package pubsub

// Topic codes match those published by the application service.
const (
	SyncCompleted Topic = iota
	BalanceChanged
	ConnectionChanged
	AllTopics
)

var (
	topicToString = map[Topic]string{
		SyncCompleted:     "SYNC_COMPLETED",
		BalanceChanged:    "BALANCE_CHANGED",
		ConnectionChanged: "CONNECTION_CHANGED",
		AllTopics:         "*",
	}
	stringToTopic = map[string]Topic{
		"SYNC_COMPLETED":     SyncCompleted,
		"BALANCE_CHANGED":    BalanceChanged,
		"CONNECTION_CHANGED": ConnectionChanged,
		"*":                  AllTopics,
	}
)

type Topic int

func TopicFromString(topicStr string) (Topic, bool) {
	topic, ok := stringToTopic[topicStr]
	return topic, ok
}

func (t Topic) String() string {
	topicStr, ok := topicToString[t]
	if !ok {
		topicStr = "UNKNOWN"
	}
	return topicStr
}

func (t Topic) Code() int {
	return int(t)
}

func (t Topic) Label() string {
	return t.String()
}
