package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/datallboy/gocol/internal/domain"
)

const transferColumns = `id, console_id, console_name, item_path, file_name, state, total_bytes, bytes_written, started_at, finished_at, error`

func (s *PersistentStore) SaveTransfer(t *domain.Transfer) error {
	var r transferDBO
	r.FromDomain(t)

	query := `INSERT INTO transfers (` + transferColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (id) DO UPDATE SET
                  state = excluded.state,
                  total_bytes = excluded.total_bytes,
                  bytes_written = excluded.bytes_written,
                  started_at = excluded.started_at,
                  finished_at = excluded.finished_at,
                  error = excluded.error`

	_, err := s.db.Exec(s.rebind(query),
		r.ID,
		r.ConsoleID,
		r.ConsoleName,
		r.ItemPath,
		r.FileName,
		r.State,
		r.TotalBytes,
		r.BytesWritten,
		r.StartedAt,
		r.FinishedAt,
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save transfer %s: %w", t.ID, err)
	}
	return nil
}

// GetTransfer returns nil, nil when id is unknown.
func (s *PersistentStore) GetTransfer(id string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = ? LIMIT 1`

	r, err := scanTransfer(s.db.QueryRow(s.rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch transfer: %w", err)
	}

	return r.ToDomain(), nil
}

// ListTransfers returns the newest transfers first. limit <= 0 means all.
func (s *PersistentStore) ListTransfers(limit int) ([]*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var items []*domain.Transfer
	for rows.Next() {
		r, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r.ToDomain())
	}

	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row scanner) (*transferDBO, error) {
	var r transferDBO
	err := row.Scan(
		&r.ID, &r.ConsoleID, &r.ConsoleName, &r.ItemPath, &r.FileName, &r.State,
		&r.TotalBytes, &r.BytesWritten, &r.StartedAt, &r.FinishedAt, &r.Error,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
