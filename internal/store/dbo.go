package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/gocol/internal/domain"
)

// transferDBO maps to the transfers table
type transferDBO struct {
	ID           string         `db:"id"`
	ConsoleID    string         `db:"console_id"`
	ConsoleName  string         `db:"console_name"`
	ItemPath     string         `db:"item_path"`
	FileName     string         `db:"file_name"`
	State        string         `db:"state"`
	TotalBytes   int64          `db:"total_bytes"`
	BytesWritten int64          `db:"bytes_written"`
	StartedAt    int64          `db:"started_at"`
	FinishedAt   int64          `db:"finished_at"`
	Error        sql.NullString `db:"error"`
}

// Mapper: DBO to Domain Transfer
func (r *transferDBO) ToDomain() *domain.Transfer {
	t := &domain.Transfer{
		ID:          r.ID,
		ConsoleID:   r.ConsoleID,
		ConsoleName: r.ConsoleName,
		ItemPath:    r.ItemPath,
		FileName:    r.FileName,
		State:       domain.TransferState(r.State),
		TotalBytes:  r.TotalBytes,
		StartedAt:   fromUnix(r.StartedAt),
		FinishedAt:  fromUnix(r.FinishedAt),
		Error:       r.Error.String,
	}
	t.Item.Path = r.ItemPath
	t.BytesWritten.Store(r.BytesWritten)
	return t
}

// Mapper: Domain Transfer to DBO
func (r *transferDBO) FromDomain(t *domain.Transfer) {
	r.ID = t.ID
	r.ConsoleID = t.ConsoleID
	r.ConsoleName = t.ConsoleName
	r.ItemPath = t.ItemPath
	r.FileName = t.FileName
	r.State = string(t.State)
	r.TotalBytes = t.TotalBytes
	r.BytesWritten = t.BytesWritten.Load()
	r.StartedAt = toUnix(t.StartedAt)
	r.FinishedAt = toUnix(t.FinishedAt)
	r.Error = sql.NullString{String: t.Error, Valid: t.Error != ""}
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
