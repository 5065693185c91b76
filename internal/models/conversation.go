package models

import (
	"encoding/json"
	"time"
)

// MessageRole identifies who authored a conversation message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageKind tags assistant messages that carry orchestration meaning.
// Pending state is never held in memory; it is reconstructed from the
// last persisted message's kind and meta.
type MessageKind string

const (
	KindText          MessageKind = "text"
	KindConfirmDelete MessageKind = "confirm_delete"
)

// ConversationMessage is one immutable entry in a user's chat log
type ConversationMessage struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"user_id"`
	Role      MessageRole `json:"role"`
	Kind      MessageKind `json:"kind"`
	Meta      string      `json:"meta,omitempty"` // JSON payload for tagged kinds
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// PendingAction is the meta payload of a confirm_delete message: the
// destructive operation that was proposed and awaits a yes/no answer.
type PendingAction struct {
	Tool   string `json:"tool"`
	TaskID int64  `json:"task_id"`
	Title  string `json:"title"`
}

// PendingActionFromMessage decodes the pending action carried by a
// confirmation-prompt message. Returns nil for any other message.
func PendingActionFromMessage(msg *ConversationMessage) *PendingAction {
	if msg == nil || msg.Role != RoleAssistant || msg.Kind != KindConfirmDelete || msg.Meta == "" {
		return nil
	}
	var pending PendingAction
	if err := json.Unmarshal([]byte(msg.Meta), &pending); err != nil {
		return nil
	}
	return &pending
}

// ToolCallRecord is the persisted audit record of one executed (or
// attempted) task operation, owned by an assistant message.
type ToolCallRecord struct {
	ID         int64           `json:"id"`
	MessageID  int64           `json:"message_id"`
	ToolUseID  string          `json:"tool_use_id"`
	ToolName   string          `json:"tool_name"`
	Parameters json.RawMessage `json:"parameters"`
	Result     json.RawMessage `json:"result"`
	Success    bool            `json:"success"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Tool names recorded in ToolCallRecord.ToolName
const (
	ToolCreate   = "create_task"
	ToolList     = "list_tasks"
	ToolUpdate   = "update_task"
	ToolComplete = "complete_task"
	ToolDelete   = "delete_task"
)

// CreateResult is the structured result payload of a successful create
type CreateResult struct {
	TaskID int64  `json:"task_id"`
	Title  string `json:"title"`
}

// ListResult is the structured result payload of a list call
type ListResult struct {
	Tasks []ListedTask `json:"tasks"`
}

// ListedTask is one entry inside a ListResult
type ListedTask struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// FailureResult is the structured result payload of a failed tool call
type FailureResult struct {
	Error string `json:"error"`
}
