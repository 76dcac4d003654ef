package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rgoodwin/cotflow/pkg/models"
)

// ErrProcessNotFound indicates no stored process has the requested ID.
var ErrProcessNotFound = errors.New("process not found in state store")

// Store persists process snapshots.
type Store struct {
	db *DB
}

// NewStore creates a store over an opened, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveSnapshot writes a full process snapshot. The previous snapshot for the
// same process is replaced in the same transaction, so readers never see a
// half-written todo set.
func (s *Store) SaveSnapshot(snap models.ProcessSnapshot) error {
	return s.db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO processes (id, query, status, iteration_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				iteration_count = excluded.iteration_count,
				updated_at = excluded.updated_at
		`, snap.ProcessID, snap.Query, string(snap.Status), snap.IterationCount,
			formatTime(snap.CreatedAt), formatTime(snap.UpdatedAt))
		if err != nil {
			return fmt.Errorf("upsert process %s: %w", snap.ProcessID, err)
		}

		if _, err := tx.Exec(`DELETE FROM todos WHERE process_id = ?`, snap.ProcessID); err != nil {
			return fmt.Errorf("clear todos for %s: %w", snap.ProcessID, err)
		}

		for i, todo := range snap.Todos {
			deps, err := json.Marshal(todo.Dependencies)
			if err != nil {
				return fmt.Errorf("marshal dependencies for %s: %w", todo.ID, err)
			}
			feedback, err := json.Marshal(todo.Feedback)
			if err != nil {
				return fmt.Errorf("marshal feedback for %s: %w", todo.ID, err)
			}

			_, err = tx.Exec(`
				INSERT INTO todos (process_id, position, id, content, status, priority, dependencies, feedback)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, snap.ProcessID, i, todo.ID, todo.Content, string(todo.Status), todo.Priority,
				string(deps), string(feedback))
			if err != nil {
				return fmt.Errorf("insert todo %s: %w", todo.ID, err)
			}
		}

		return nil
	})
}

// LoadSnapshot reads the stored snapshot for a process. Todos come back in
// their original insertion order.
func (s *Store) LoadSnapshot(processID string) (models.ProcessSnapshot, error) {
	var snap models.ProcessSnapshot
	var status, createdAt, updatedAt string

	row := s.db.QueryRow(`
		SELECT id, query, status, iteration_count, created_at, updated_at
		FROM processes WHERE id = ?
	`, processID)
	err := row.Scan(&snap.ProcessID, &snap.Query, &status, &snap.IterationCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrProcessNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("load process %s: %w", processID, err)
	}

	snap.Status = models.ProcessStatus(status)
	if snap.CreatedAt, err = parseTime(createdAt); err != nil {
		return snap, fmt.Errorf("parse created_at for %s: %w", processID, err)
	}
	if snap.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return snap, fmt.Errorf("parse updated_at for %s: %w", processID, err)
	}

	rows, err := s.db.Query(`
		SELECT id, content, status, priority, dependencies, feedback
		FROM todos WHERE process_id = ? ORDER BY position
	`, processID)
	if err != nil {
		return snap, fmt.Errorf("load todos for %s: %w", processID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var todo models.TodoSnapshot
		var todoStatus string
		var deps, feedback sql.NullString

		if err := rows.Scan(&todo.ID, &todo.Content, &todoStatus, &todo.Priority, &deps, &feedback); err != nil {
			return snap, fmt.Errorf("scan todo for %s: %w", processID, err)
		}
		todo.Status = models.TodoStatus(todoStatus)
		if deps.Valid && deps.String != "" {
			if err := json.Unmarshal([]byte(deps.String), &todo.Dependencies); err != nil {
				return snap, fmt.Errorf("unmarshal dependencies for %s: %w", todo.ID, err)
			}
		}
		if feedback.Valid && feedback.String != "" {
			if err := json.Unmarshal([]byte(feedback.String), &todo.Feedback); err != nil {
				return snap, fmt.Errorf("unmarshal feedback for %s: %w", todo.ID, err)
			}
		}
		snap.Todos = append(snap.Todos, todo)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate todos for %s: %w", processID, err)
	}

	return snap, nil
}

// ProcessInfo is one row of the process listing.
type ProcessInfo struct {
	ProcessID      string
	Query          string
	Status         models.ProcessStatus
	IterationCount int
	TodoCount      int
}

// ListProcesses returns stored processes, most recently updated first.
func (s *Store) ListProcesses() ([]ProcessInfo, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.query, p.status, p.iteration_count, COUNT(t.id)
		FROM processes p
		LEFT JOIN todos t ON t.process_id = p.id
		GROUP BY p.id
		ORDER BY p.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var infos []ProcessInfo
	for rows.Next() {
		var info ProcessInfo
		var status string
		if err := rows.Scan(&info.ProcessID, &info.Query, &status, &info.IterationCount, &info.TodoCount); err != nil {
			return nil, fmt.Errorf("scan process row: %w", err)
		}
		info.Status = models.ProcessStatus(status)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteProcess removes a stored process and its todos.
func (s *Store) DeleteProcess(processID string) error {
	result, err := s.db.Exec(`DELETE FROM processes WHERE id = ?`, processID)
	if err != nil {
		return fmt.Errorf("delete process %s: %w", processID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProcessNotFound
	}
	return nil
}
