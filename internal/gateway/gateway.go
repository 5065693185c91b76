package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskchat/internal/models"
	"taskchat/internal/store"

	gocache "github.com/patrickmn/go-cache"
)

// TaskStore is the external task-storage contract the gateway executes
// against. All operations are keyed by (user_id, task_id).
type TaskStore interface {
	Create(ctx context.Context, userID, title, description string) (*models.Task, error)
	List(ctx context.Context, userID string, status *models.TaskStatus) ([]models.Task, error)
	Get(ctx context.Context, userID string, taskID int64) (*models.Task, error)
	Update(ctx context.Context, userID string, taskID int64, title string) (*models.Task, error)
	Complete(ctx context.Context, userID string, taskID int64) (*models.Task, error)
	Delete(ctx context.Context, userID string, taskID int64) error
}

// Gateway is the authorization boundary in front of the task store: it
// validates parameters and re-verifies ownership on every targeted call.
// It never trusts an upstream binding (e.g. the resolver's task_ref) as
// an authorization decision. It is the only path by which the rest of
// the system touches tasks.
type Gateway struct {
	tasks TaskStore

	// Short-TTL per-user list cache. The resolver issues a List
	// side-call on most reference resolutions; caching keeps that
	// cheap. Mutations invalidate the owner's entry.
	listCache *gocache.Cache
}

const listCacheTTL = 5 * time.Second

// New creates a gateway over the given task store
func New(tasks TaskStore) *Gateway {
	return &Gateway{
		tasks:     tasks,
		listCache: gocache.New(listCacheTTL, time.Minute),
	}
}

func (g *Gateway) validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "cannot be empty"}
	}
	if len(title) > models.TitleMaxLength {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", models.TitleMaxLength)}
	}
	return nil
}

// verifyOwnership re-checks that the task exists and belongs to userID.
// Runs before every targeted mutation, regardless of how the caller
// obtained the task id.
func (g *Gateway) verifyOwnership(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	task, err := g.tasks.Get(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &ToolError{Op: "get", Err: err}
	}
	return task, nil
}

// Create validates the title and inserts a new task
func (g *Gateway) Create(ctx context.Context, userID, title, description string) (*models.Task, error) {
	if err := g.validateTitle(title); err != nil {
		return nil, err
	}
	task, err := g.tasks.Create(ctx, userID, strings.TrimSpace(title), strings.TrimSpace(description))
	if err != nil {
		return nil, &ToolError{Op: "create", Err: err}
	}
	g.listCache.Delete(userID)
	return task, nil
}

// List returns the user's tasks, optionally filtered by status. An
// empty list is a valid, non-error result.
func (g *Gateway) List(ctx context.Context, userID string, status *models.TaskStatus) ([]models.Task, error) {
	if status == nil {
		if cached, ok := g.listCache.Get(userID); ok {
			return cached.([]models.Task), nil
		}
	}
	tasks, err := g.tasks.List(ctx, userID, status)
	if err != nil {
		return nil, &ToolError{Op: "list", Err: err}
	}
	if status == nil {
		g.listCache.Set(userID, tasks, listCacheTTL)
	}
	return tasks, nil
}

// Get returns a single task if it exists and belongs to the user
func (g *Gateway) Get(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	return g.verifyOwnership(ctx, userID, taskID)
}

// Update changes a task's title after re-verifying ownership
func (g *Gateway) Update(ctx context.Context, userID string, taskID int64, newTitle string) (*models.Task, error) {
	if err := g.validateTitle(newTitle); err != nil {
		return nil, err
	}
	if _, err := g.verifyOwnership(ctx, userID, taskID); err != nil {
		return nil, err
	}
	task, err := g.tasks.Update(ctx, userID, taskID, strings.TrimSpace(newTitle))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &ToolError{Op: "update", Err: err}
	}
	g.listCache.Delete(userID)
	return task, nil
}

// Complete marks a task done. Idempotent: completing an already
// completed task succeeds and returns the task unchanged.
func (g *Gateway) Complete(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	if _, err := g.verifyOwnership(ctx, userID, taskID); err != nil {
		return nil, err
	}
	task, err := g.tasks.Complete(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &ToolError{Op: "complete", Err: err}
	}
	g.listCache.Delete(userID)
	return task, nil
}

// Delete removes a task after re-verifying ownership. Irreversible; the
// orchestrator gates this behind an explicit user confirmation.
func (g *Gateway) Delete(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	task, err := g.verifyOwnership(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := g.tasks.Delete(ctx, userID, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &ToolError{Op: "delete", Err: err}
	}
	g.listCache.Delete(userID)
	return task, nil
}
