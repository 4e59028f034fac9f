package domain

import "sort"

// PendingWatchEntry collects the addresses of an account whose registration
// with the network failed and is waiting for a retry.
type PendingWatchEntry struct {
	AccountID string
	Addresses map[string]WatchedAddress
	Errors    map[string]string
}

func NewPendingWatchEntry(accountID string) *PendingWatchEntry {
	return &PendingWatchEntry{
		AccountID: accountID,
		Addresses: make(map[string]WatchedAddress),
		Errors:    make(map[string]string),
	}
}

func (e *PendingWatchEntry) Add(addr WatchedAddress, err error) {
	e.Addresses[addr.Address] = addr
	if err != nil {
		e.Errors[addr.Address] = err.Error()
	}
}

func (e *PendingWatchEntry) Remove(address string) {
	delete(e.Addresses, address)
	delete(e.Errors, address)
}

func (e *PendingWatchEntry) Len() int {
	return len(e.Addresses)
}

// List returns the pending addresses sorted by chain and index.
func (e *PendingWatchEntry) List() []WatchedAddress {
	list := make([]WatchedAddress, 0, len(e.Addresses))
	for _, a := range e.Addresses {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Chain != list[j].Chain {
			return list[i].Chain < list[j].Chain
		}
		return list[i].Index < list[j].Index
	})
	return list
}

type VerificationKind int

const (
	VerificationUnknown VerificationKind = iota
	VerificationVerifying
	VerificationVerified
	VerificationFailed
)

func (k VerificationKind) String() string {
	switch k {
	case VerificationVerifying:
		return "verifying"
	case VerificationVerified:
		return "verified"
	case VerificationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// VerificationStatus is the outcome of the last watch verification pass.
type VerificationStatus struct {
	Kind     VerificationKind
	Total    int
	Watching int
	Reason   string
}

func (s VerificationStatus) IsHealthy() bool {
	return s.Kind == VerificationVerified && s.Total == s.Watching
}
