package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskchat/internal/gateway"
	"taskchat/internal/logging"
	"taskchat/internal/models"
	"taskchat/internal/resolver"
	"taskchat/internal/services"
)

const (
	notFoundText         = "I couldn't find that task."
	toolErrorText        = "Something went wrong while handling your tasks. Please try again."
	persistenceErrorText = "Something went wrong saving our conversation. Please try again."
)

type createParams struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type listParams struct {
	Status *models.TaskStatus `json:"status,omitempty"`
}

type updateParams struct {
	TaskID   int64  `json:"task_id"`
	NewTitle string `json:"new_title"`
}

type taskIDParams struct {
	TaskID int64 `json:"task_id"`
}

type deleteResult struct {
	TaskID  int64 `json:"task_id"`
	Deleted bool  `json:"deleted"`
}

// finish records the outcome of an attempted gateway call on the turn
func (t *turn) finish(toolName string, params, result any, success bool, response string) {
	t.exec = &execution{toolName: toolName, parameters: params, result: result, success: success}
	t.response = response
	if m := services.GetMetrics(); m != nil {
		status := "success"
		if !success {
			status = "failure"
		}
		m.RecordToolCall(toolName, status)
	}
}

// failExec maps a gateway error to a user-safe reply and a failure
// record. The record is written even on failure: the audit trail covers
// every attempted call.
func (t *turn) failExec(logger *slog.Logger, toolName string, params any, err error) {
	var response string
	var ve *gateway.ValidationError
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		response = notFoundText
	case errors.As(err, &ve):
		response = fmt.Sprintf("That doesn't look right: %s %s.", ve.Field, ve.Reason)
	default:
		logging.WithTool(logger, toolName).Error("gateway call failed", "error", err)
		response = toolErrorText
	}
	t.finish(toolName, params, models.FailureResult{Error: response}, false, response)
}

func (o *Orchestrator) execCreate(ctx context.Context, logger *slog.Logger, userID string, d resolver.Create, t *turn) {
	params := createParams{Title: d.Title, Description: d.Description}
	task, err := o.gateway.Create(ctx, userID, d.Title, d.Description)
	if err != nil {
		t.failExec(logger, models.ToolCreate, params, err)
		return
	}
	result := models.CreateResult{TaskID: task.ID, Title: task.Title}
	t.finish(models.ToolCreate, params, result, true,
		fmt.Sprintf("I've added \"%s\" to your todo list (task %d).", task.Title, task.ID))
}

func (o *Orchestrator) execList(ctx context.Context, logger *slog.Logger, userID string, d resolver.List, t *turn) {
	params := listParams{Status: d.Status}
	tasks, err := o.gateway.List(ctx, userID, d.Status)
	if err != nil {
		t.failExec(logger, models.ToolList, params, err)
		return
	}

	listed := make([]models.ListedTask, len(tasks))
	for i, task := range tasks {
		listed[i] = models.ListedTask{ID: task.ID, Title: task.Title, Completed: task.IsCompleted()}
	}
	t.finish(models.ToolList, params, models.ListResult{Tasks: listed}, true, composeTaskList(listed, d.Status))
}

func (o *Orchestrator) execUpdate(ctx context.Context, logger *slog.Logger, userID string, d resolver.Update, t *turn) {
	params := updateParams{TaskID: d.TaskID, NewTitle: d.NewTitle}
	task, err := o.gateway.Update(ctx, userID, d.TaskID, d.NewTitle)
	if err != nil {
		t.failExec(logger, models.ToolUpdate, params, err)
		return
	}
	result := models.CreateResult{TaskID: task.ID, Title: task.Title}
	t.finish(models.ToolUpdate, params, result, true,
		fmt.Sprintf("Updated task %d to \"%s\".", task.ID, task.Title))
}

func (o *Orchestrator) execComplete(ctx context.Context, logger *slog.Logger, userID string, d resolver.Complete, t *turn) {
	params := taskIDParams{TaskID: d.TaskID}
	task, err := o.gateway.Complete(ctx, userID, d.TaskID)
	if err != nil {
		t.failExec(logger, models.ToolComplete, params, err)
		return
	}
	result := models.CreateResult{TaskID: task.ID, Title: task.Title}
	t.finish(models.ToolComplete, params, result, true,
		fmt.Sprintf("Marked \"%s\" as complete. ✅", task.Title))
}

func (o *Orchestrator) execDelete(ctx context.Context, logger *slog.Logger, userID string, taskID int64, t *turn) {
	params := taskIDParams{TaskID: taskID}
	task, err := o.gateway.Delete(ctx, userID, taskID)
	if err != nil {
		t.failExec(logger, models.ToolDelete, params, err)
		return
	}
	t.finish(models.ToolDelete, params, deleteResult{TaskID: task.ID, Deleted: true}, true,
		fmt.Sprintf("Deleted \"%s\".", task.Title))
}

// composeTaskList renders a listing the way the chat has always shown
// it: numbered ids with a status mark per line.
func composeTaskList(tasks []models.ListedTask, status *models.TaskStatus) string {
	if len(tasks) == 0 {
		if status == nil {
			return "You don't have any tasks yet."
		}
		return fmt.Sprintf("You don't have any %s tasks.", *status)
	}

	var b strings.Builder
	b.WriteString("Your tasks:\n")
	for _, task := range tasks {
		mark := "⏳"
		if task.Completed {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", task.ID, task.Title, mark)
	}
	return strings.TrimRight(b.String(), "\n")
}
