package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskchat/internal/database"
	"taskchat/internal/models"
)

// ErrNotFound is returned when a row is missing or owned by another
// user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// TaskStore handles SQL CRUD for tasks. Every query filters by user_id;
// there is no code path that fetches a task by id alone.
type TaskStore struct {
	db *database.DB
}

// NewTaskStore creates a new task store
func NewTaskStore(db *database.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new task in pending state
func (s *TaskStore) Create(ctx context.Context, userID, title, description string) (*models.Task, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, title, description, models.TaskStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read task id: %w", err)
	}

	return &models.Task{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// List returns the user's tasks in creation order, optionally filtered
// by status. An empty result is a valid, non-error outcome.
func (s *TaskStore) List(ctx context.Context, userID string, status *models.TaskStatus) ([]models.Task, error) {
	query := `SELECT id, user_id, title, description, status, created_at, updated_at
	          FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var description sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Description = description.String
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Get retrieves a task by id, scoped to user. A miss and a foreign row
// both return ErrNotFound.
func (s *TaskStore) Get(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	var t models.Task
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, status, created_at, updated_at
		 FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID,
	).Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	t.Description = description.String
	return &t, nil
}

// Update changes a task's title
func (s *TaskStore) Update(ctx context.Context, userID string, taskID int64, title string) (*models.Task, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, now, taskID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID, taskID)
}

// Complete marks a task completed. Completing an already-completed task
// is not an error; the task is returned unchanged.
func (s *TaskStore) Complete(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return task, nil
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		models.TaskStatusCompleted, now, taskID, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	task.Status = models.TaskStatusCompleted
	task.UpdatedAt = now
	return task, nil
}

// Delete removes a task row. Irreversible.
func (s *TaskStore) Delete(ctx context.Context, userID string, taskID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
