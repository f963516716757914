package domain

import (
	"sync/atomic"
	"time"
)

type TransferState string

const (
	StateIdle          TransferState = "idle"
	StateProbingLength TransferState = "probing"
	StateDownloading   TransferState = "downloading"
	StateComplete      TransferState = "complete"
	StateFailed        TransferState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s TransferState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Transfer represents the download of one MetadataItem from one Console.
type Transfer struct {
	ID          string        `json:"id"`
	ConsoleID   string        `json:"console_id"`
	ConsoleName string        `json:"console_name"`
	Item        MetadataItem  `json:"-"`
	ItemPath    string        `json:"item_path"`
	FileName    string        `json:"file_name"`
	State       TransferState `json:"state"`

	BytesWritten atomic.Int64 `json:"-"`
	TotalBytes   int64        `json:"total_bytes"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}
