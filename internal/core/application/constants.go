package application

// Topics to be published
const (
	SyncCompleted = iota
	BalanceChanged
	ConnectionChanged
)
