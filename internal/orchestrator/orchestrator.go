package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskchat/internal/logging"
	"taskchat/internal/models"
	"taskchat/internal/resolver"
	"taskchat/internal/services"
)

// turnState names a phase of the per-request state machine. The machine
// is re-entered from idle on every request; nothing survives across
// turns except what the conversation store holds.
type turnState string

const (
	stateResolving      turnState = "resolving"
	stateClarifying     turnState = "clarifying"
	stateConfirmPending turnState = "confirm_pending"
	stateExecuting      turnState = "executing"
	stateResponding     turnState = "responding"
)

// ErrEmptyMessage rejects blank input before any store access
var ErrEmptyMessage = errors.New("message cannot be empty")

// ConversationStore is the append-only log the orchestrator reads its
// context from and writes each finished exchange to.
type ConversationStore interface {
	Append(ctx context.Context, userID string, role models.MessageRole, kind models.MessageKind, meta, content string) (int64, error)
	Recent(ctx context.Context, userID string, limit int, maxAge time.Duration) ([]models.ConversationMessage, error)
	AppendToolCall(ctx context.Context, messageID int64, toolName string, parameters, result json.RawMessage, success bool) (int64, error)
}

// IntentResolver maps history + message to one closed-set decision
type IntentResolver interface {
	Resolve(ctx context.Context, userID, message string, history []models.ConversationMessage) (resolver.Decision, error)
}

// TaskGateway is the authorization-checked boundary for the five task
// operations.
type TaskGateway interface {
	Create(ctx context.Context, userID, title, description string) (*models.Task, error)
	List(ctx context.Context, userID string, status *models.TaskStatus) ([]models.Task, error)
	Update(ctx context.Context, userID string, taskID int64, newTitle string) (*models.Task, error)
	Complete(ctx context.Context, userID string, taskID int64) (*models.Task, error)
	Delete(ctx context.Context, userID string, taskID int64) (*models.Task, error)
}

// TurnResult is what one orchestrated turn returns to the caller
type TurnResult struct {
	Response  string                  `json:"response"`
	ToolCalls []models.ToolCallRecord `json:"tool_calls"`
}

// Orchestrator coordinates one synchronous chat turn: load history,
// resolve intent, gate destructive actions behind confirmation, execute
// through the gateway, persist the exchange, compose the reply. It is
// stateless across turns by construction.
type Orchestrator struct {
	conversations ConversationStore
	gateway       TaskGateway
	resolver      IntentResolver
	historyLimit  int
	historyMaxAge time.Duration
}

// New creates an orchestrator
func New(conversations ConversationStore, gw TaskGateway, res IntentResolver, historyLimit int, historyMaxAge time.Duration) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		gateway:       gw,
		resolver:      res,
		historyLimit:  historyLimit,
		historyMaxAge: historyMaxAge,
	}
}

// execution captures one attempted gateway call for the audit record.
// A record is written whenever a call was actually attempted, success
// or failure.
type execution struct {
	toolName   string
	parameters any
	result     any
	success    bool
}

// turn is the mutable state of a single request's pass through the
// machine.
type turn struct {
	response string
	kind     models.MessageKind
	meta     string
	exec     *execution
}

// ProcessTurn runs the full state machine for one inbound message
func (o *Orchestrator) ProcessTurn(ctx context.Context, userID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	message = strings.TrimSpace(message)

	logger := logging.WithTurn(userID, len(message))
	start := time.Now()
	if m := services.GetMetrics(); m != nil {
		m.RecordTurn()
		defer func() { m.RecordTurnLatency(time.Since(start).Seconds()) }()
	}

	state := stateResolving
	logger.Debug("turn started", "state", state)

	history, err := o.conversations.Recent(ctx, userID, o.historyLimit, o.historyMaxAge)
	if err != nil {
		logger.Error("failed to load history", "error", err)
		return o.failClosed(ctx, logger, userID, message, persistenceErrorText)
	}

	decision, err := o.resolver.Resolve(ctx, userID, message, history)
	if err != nil {
		logger.Error("resolver failed", "error", err)
		return o.failClosed(ctx, logger, userID, message, toolErrorText)
	}
	if m := services.GetMetrics(); m != nil {
		m.RecordDecision(decisionLabel(decision))
	}

	t := &turn{kind: models.KindText}

	switch d := decision.(type) {
	case resolver.NeedsClarification:
		state = stateClarifying
		t.response = d.Question

	case resolver.Delete:
		// Destructive: never executed on first sight. The prompt itself
		// carries the bound task so the next turn can reconstruct it.
		state = stateConfirmPending
		pending := models.PendingAction{Tool: models.ToolDelete, TaskID: d.TaskID, Title: d.Title}
		metaJSON, merr := json.Marshal(pending)
		if merr != nil {
			logger.Error("failed to encode pending action", "error", merr)
			return o.failClosed(ctx, logger, userID, message, toolErrorText)
		}
		t.kind = models.KindConfirmDelete
		t.meta = string(metaJSON)
		t.response = fmt.Sprintf("Are you sure you want to delete '%s'?", d.Title)

	case resolver.ConfirmationReceived:
		if !d.Confirmed {
			t.response = "Okay, I won't delete it."
			break
		}
		state = stateExecuting
		o.execDelete(ctx, logger, userID, d.Pending.TaskID, t)

	case resolver.Create:
		state = stateExecuting
		o.execCreate(ctx, logger, userID, d, t)

	case resolver.List:
		state = stateExecuting
		o.execList(ctx, logger, userID, d, t)

	case resolver.Update:
		state = stateExecuting
		o.execUpdate(ctx, logger, userID, d, t)

	case resolver.Complete:
		state = stateExecuting
		o.execComplete(ctx, logger, userID, d, t)

	default:
		logger.Error("unhandled decision type", "decision", fmt.Sprintf("%T", decision))
		t.response = resolver.HelpText
	}

	state = stateResponding
	logger.Debug("turn responding", "state", state)
	return o.respond(ctx, logger, userID, message, t)
}

// respond persists the exchange and returns the result. Message and
// record writes happen at the end of the turn so a failed turn never
// leaves a partial exchange.
func (o *Orchestrator) respond(ctx context.Context, logger *slog.Logger, userID, message string, t *turn) (*TurnResult, error) {
	if _, err := o.conversations.Append(ctx, userID, models.RoleUser, models.KindText, "", message); err != nil {
		logger.Error("failed to persist user message", "error", err)
		return &TurnResult{Response: persistenceErrorText, ToolCalls: []models.ToolCallRecord{}}, nil
	}

	assistantID, err := o.conversations.Append(ctx, userID, models.RoleAssistant, t.kind, t.meta, t.response)
	if err != nil {
		logger.Error("failed to persist assistant message", "error", err)
		return &TurnResult{Response: persistenceErrorText, ToolCalls: []models.ToolCallRecord{}}, nil
	}

	toolCalls := []models.ToolCallRecord{}
	if t.exec != nil {
		paramsJSON, _ := json.Marshal(t.exec.parameters)
		resultJSON, _ := json.Marshal(t.exec.result)
		recordID, err := o.conversations.AppendToolCall(ctx, assistantID, t.exec.toolName, paramsJSON, resultJSON, t.exec.success)
		if err != nil {
			// The task mutation is already committed; it is not rolled
			// back. The gap is logged and surfaced, never hidden.
			logger.Error("tool call committed but record write failed", "tool", t.exec.toolName, "error", err)
			return &TurnResult{Response: persistenceErrorText, ToolCalls: []models.ToolCallRecord{}}, nil
		}
		toolCalls = append(toolCalls, models.ToolCallRecord{
			ID:         recordID,
			MessageID:  assistantID,
			ToolName:   t.exec.toolName,
			Parameters: paramsJSON,
			Result:     resultJSON,
			Success:    t.exec.success,
		})
	}

	return &TurnResult{Response: t.response, ToolCalls: toolCalls}, nil
}

// failClosed answers with a user-safe error and tries, best effort, to
// keep the audit trail of the exchange.
func (o *Orchestrator) failClosed(ctx context.Context, logger *slog.Logger, userID, message, response string) (*TurnResult, error) {
	t := &turn{kind: models.KindText, response: response}
	return o.respond(ctx, logger, userID, message, t)
}

func decisionLabel(d resolver.Decision) string {
	switch d.(type) {
	case resolver.Create:
		return "create"
	case resolver.List:
		return "list"
	case resolver.Update:
		return "update"
	case resolver.Complete:
		return "complete"
	case resolver.Delete:
		return "delete"
	case resolver.NeedsClarification:
		return "clarify"
	case resolver.ConfirmationReceived:
		return "confirmation"
	}
	return "unknown"
}
