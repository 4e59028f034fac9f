package domain

import "time"

// SyncStage is the fine grained phase reported by the network while
// syncing.
type SyncStage int

const (
	StageConnecting SyncStage = iota
	StageQueryingHeight
	StageDownloading
	StageValidating
	StageStoring
	StageComplete
	StageFailed
)

func (s SyncStage) String() string {
	switch s {
	case StageConnecting:
		return "connecting"
	case StageQueryingHeight:
		return "queryingHeight"
	case StageDownloading:
		return "downloading"
	case StageValidating:
		return "validating"
	case StageStoring:
		return "storing"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SyncStatus is the coarse status exposed to consumers that predate the
// stage breakdown.
type SyncStatus string

const (
	SyncStatusIdle               SyncStatus = "idle"
	SyncStatusConnecting         SyncStatus = "connecting"
	SyncStatusDownloadingHeaders SyncStatus = "downloadingHeaders"
	SyncStatusSynced             SyncStatus = "synced"
	SyncStatusError              SyncStatus = "error"
)

var stageToStatus = map[SyncStage]SyncStatus{
	StageConnecting:     SyncStatusConnecting,
	StageQueryingHeight: SyncStatusConnecting,
	StageDownloading:    SyncStatusDownloadingHeaders,
	StageValidating:     SyncStatusDownloadingHeaders,
	StageStoring:        SyncStatusDownloadingHeaders,
	StageComplete:       SyncStatusSynced,
	StageFailed:         SyncStatusError,
}

// Status maps the stage onto the legacy status.
func (s SyncStage) Status() SyncStatus {
	if st, ok := stageToStatus[s]; ok {
		return st
	}
	return SyncStatusError
}

// SyncProgress is a single progress report of a sync run.
type SyncProgress struct {
	CurrentHeight    uint32
	TotalHeight      uint32
	Percentage       float64
	Stage            SyncStage
	ConnectedPeers   uint32
	HeadersPerSecond float64
	ETA              time.Duration
}

// SyncState is the lifecycle state of the sync controller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncCompleted
	SyncFailed
	SyncCancelled
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "running"
	case SyncCompleted:
		return "completed"
	case SyncFailed:
		return "failed"
	case SyncCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SyncSession describes one run of the sync controller. Only the session
// whose ID matches the controller's current one may apply updates.
type SyncSession struct {
	ID        string
	WalletID  string
	State     SyncState
	Progress  SyncProgress
	LastError string
	StartedAt time.Time
	UpdatedAt time.Time
}

// Status returns the legacy status of the session.
func (s SyncSession) Status() SyncStatus {
	switch s.State {
	case SyncIdle, SyncCancelled:
		return SyncStatusIdle
	case SyncCompleted:
		return SyncStatusSynced
	case SyncFailed:
		return SyncStatusError
	default:
		return s.Progress.Stage.Status()
	}
}
