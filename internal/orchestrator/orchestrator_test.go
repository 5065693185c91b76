package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"taskchat/internal/gateway"
	"taskchat/internal/models"
	"taskchat/internal/resolver"
)

// fakeConversations is an in-memory ConversationStore
type fakeConversations struct {
	nextID       int64
	messages     []models.ConversationMessage
	records      []models.ToolCallRecord
	failToolCall bool
}

func (f *fakeConversations) Append(_ context.Context, userID string, role models.MessageRole, kind models.MessageKind, meta, content string) (int64, error) {
	f.nextID++
	f.messages = append(f.messages, models.ConversationMessage{
		ID: f.nextID, UserID: userID, Role: role, Kind: kind, Meta: meta, Content: content,
	})
	return f.nextID, nil
}

func (f *fakeConversations) Recent(_ context.Context, userID string, limit int, _ time.Duration) ([]models.ConversationMessage, error) {
	out := []models.ConversationMessage{}
	for _, m := range f.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeConversations) AppendToolCall(_ context.Context, messageID int64, toolName string, parameters, result json.RawMessage, success bool) (int64, error) {
	if f.failToolCall {
		return 0, errors.New("disk full")
	}
	f.nextID++
	f.records = append(f.records, models.ToolCallRecord{
		ID: f.nextID, MessageID: messageID, ToolName: toolName,
		Parameters: parameters, Result: result, Success: success,
	})
	return f.nextID, nil
}

// fakeResolver returns a scripted decision
type fakeResolver struct {
	decision resolver.Decision
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, _, _ string, _ []models.ConversationMessage) (resolver.Decision, error) {
	return f.decision, f.err
}

// fakeGateway scripts the five task operations
type fakeGateway struct {
	task *models.Task
	err  error

	deleteCalled bool
	deletedID    int64
}

func (f *fakeGateway) Create(_ context.Context, _, _, _ string) (*models.Task, error) {
	return f.task, f.err
}

func (f *fakeGateway) List(_ context.Context, _ string, _ *models.TaskStatus) ([]models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.task == nil {
		return []models.Task{}, nil
	}
	return []models.Task{*f.task}, nil
}

func (f *fakeGateway) Update(_ context.Context, _ string, _ int64, _ string) (*models.Task, error) {
	return f.task, f.err
}

func (f *fakeGateway) Complete(_ context.Context, _ string, _ int64) (*models.Task, error) {
	return f.task, f.err
}

func (f *fakeGateway) Delete(_ context.Context, _ string, taskID int64) (*models.Task, error) {
	f.deleteCalled = true
	f.deletedID = taskID
	return f.task, f.err
}

func newTestOrchestrator(conv *fakeConversations, gw *fakeGateway, res *fakeResolver) *Orchestrator {
	return New(conv, gw, res, 50, 24*time.Hour)
}

func TestProcessTurnRejectsEmptyMessage(t *testing.T) {
	conv := &fakeConversations{}
	o := newTestOrchestrator(conv, &fakeGateway{}, &fakeResolver{})

	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := o.ProcessTurn(context.Background(), "u1", msg); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("ProcessTurn(%q) error = %v, want ErrEmptyMessage", msg, err)
		}
	}
	if len(conv.messages) != 0 {
		t.Errorf("rejected turns must not be persisted, got %d messages", len(conv.messages))
	}
}

func TestProcessTurnCreate(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{task: &models.Task{ID: 1, Title: "Buy milk", Status: models.TaskStatusPending}}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.Create{Title: "Buy milk"}})

	result, err := o.ProcessTurn(context.Background(), "u1", "add buy milk")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	want := `I've added "Buy milk" to your todo list (task 1).`
	if result.Response != want {
		t.Errorf("Response = %q, want %q", result.Response, want)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(result.ToolCalls))
	}
	if result.ToolCalls[0].ToolName != models.ToolCreate || !result.ToolCalls[0].Success {
		t.Errorf("unexpected record: %#v", result.ToolCalls[0])
	}

	// Persistence: user message, assistant message, record.
	if len(conv.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.messages))
	}
	if conv.messages[0].Role != models.RoleUser || conv.messages[1].Role != models.RoleAssistant {
		t.Errorf("message roles wrong: %v, %v", conv.messages[0].Role, conv.messages[1].Role)
	}
	if len(conv.records) != 1 {
		t.Errorf("records = %d, want 1", len(conv.records))
	}
	if conv.records[0].MessageID != conv.messages[1].ID {
		t.Errorf("record owned by message %d, want assistant message %d", conv.records[0].MessageID, conv.messages[1].ID)
	}
}

func TestProcessTurnDeleteAsksForConfirmation(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.Delete{TaskID: 2, Title: "Old task"}})

	result, err := o.ProcessTurn(context.Background(), "u1", "delete old task")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	if result.Response != "Are you sure you want to delete 'Old task'?" {
		t.Errorf("Response = %q", result.Response)
	}
	if gw.deleteCalled {
		t.Error("delete must not execute before confirmation")
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("no tool record before confirmation, got %d", len(result.ToolCalls))
	}

	// The prompt message carries the pending action for the next turn.
	assistant := conv.messages[len(conv.messages)-1]
	if assistant.Kind != models.KindConfirmDelete {
		t.Fatalf("assistant message kind = %s, want confirm_delete", assistant.Kind)
	}
	pending := models.PendingActionFromMessage(&assistant)
	if pending == nil || pending.TaskID != 2 || pending.Tool != models.ToolDelete {
		t.Errorf("pending action not reconstructable: %#v", pending)
	}
}

func TestProcessTurnConfirmedDeleteExecutes(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{task: &models.Task{ID: 2, Title: "Old task"}}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.ConfirmationReceived{
		Confirmed: true,
		Pending:   models.PendingAction{Tool: models.ToolDelete, TaskID: 2, Title: "Old task"},
	}})

	result, err := o.ProcessTurn(context.Background(), "u1", "yes")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	if !gw.deleteCalled || gw.deletedID != 2 {
		t.Errorf("delete not executed against task 2: called=%v id=%d", gw.deleteCalled, gw.deletedID)
	}
	if result.Response != `Deleted "Old task".` {
		t.Errorf("Response = %q", result.Response)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].ToolName != models.ToolDelete {
		t.Errorf("expected one delete record, got %#v", result.ToolCalls)
	}
}

func TestProcessTurnDeclinedDeleteDoesNothing(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.ConfirmationReceived{
		Confirmed: false,
		Pending:   models.PendingAction{Tool: models.ToolDelete, TaskID: 2, Title: "Old task"},
	}})

	result, err := o.ProcessTurn(context.Background(), "u1", "no")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	if gw.deleteCalled {
		t.Error("declined delete must not reach the gateway")
	}
	if result.Response != "Okay, I won't delete it." {
		t.Errorf("Response = %q", result.Response)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("declined delete must not write a record, got %d", len(result.ToolCalls))
	}
}

func TestProcessTurnClarification(t *testing.T) {
	conv := &fakeConversations{}
	o := newTestOrchestrator(conv, &fakeGateway{}, &fakeResolver{decision: resolver.NeedsClarification{Question: "Which task do you mean?"}})

	result, err := o.ProcessTurn(context.Background(), "u1", "delete it")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if result.Response != "Which task do you mean?" {
		t.Errorf("Response = %q", result.Response)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("clarification must not call tools, got %d records", len(result.ToolCalls))
	}
}

func TestProcessTurnNotFoundMapped(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{err: gateway.ErrNotFound}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.Complete{TaskID: 9, Title: "task 9"}})

	result, err := o.ProcessTurn(context.Background(), "u1", "complete task 9")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	if result.Response != notFoundText {
		t.Errorf("Response = %q, want %q", result.Response, notFoundText)
	}
	// The attempted call is still recorded, as a failure.
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Success {
		t.Errorf("expected one failed record, got %#v", result.ToolCalls)
	}
}

func TestProcessTurnValidationErrorMapped(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{err: &gateway.ValidationError{Field: "title", Reason: "cannot be empty"}}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.Create{Title: ""}})

	result, err := o.ProcessTurn(context.Background(), "u1", "add ")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if !strings.Contains(result.Response, "title") {
		t.Errorf("validation response should mention the field, got %q", result.Response)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Success {
		t.Errorf("expected one failed record, got %#v", result.ToolCalls)
	}
}

func TestProcessTurnListComposition(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{task: &models.Task{ID: 3, Title: "Walk dog", Status: models.TaskStatusCompleted}}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.List{}})

	result, err := o.ProcessTurn(context.Background(), "u1", "show my tasks")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if !strings.Contains(result.Response, "3. Walk dog ✅") {
		t.Errorf("list response missing completed task line, got %q", result.Response)
	}
}

func TestProcessTurnEmptyList(t *testing.T) {
	conv := &fakeConversations{}
	o := newTestOrchestrator(conv, &fakeGateway{}, &fakeResolver{decision: resolver.List{}})

	result, err := o.ProcessTurn(context.Background(), "u1", "show my tasks")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if result.Response != "You don't have any tasks yet." {
		t.Errorf("Response = %q", result.Response)
	}
	if len(result.ToolCalls) != 1 || !result.ToolCalls[0].Success {
		t.Errorf("an empty list is still a successful call, got %#v", result.ToolCalls)
	}
}

func TestProcessTurnRecordWriteFailureSurfaced(t *testing.T) {
	conv := &fakeConversations{failToolCall: true}
	gw := &fakeGateway{task: &models.Task{ID: 2, Title: "Old task"}}
	o := newTestOrchestrator(conv, gw, &fakeResolver{decision: resolver.ConfirmationReceived{
		Confirmed: true,
		Pending:   models.PendingAction{Tool: models.ToolDelete, TaskID: 2, Title: "Old task"},
	}})

	result, err := o.ProcessTurn(context.Background(), "u1", "yes")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	// The mutation is committed and not rolled back; the gap is
	// surfaced instead of hidden.
	if !gw.deleteCalled {
		t.Error("mutation should have been attempted")
	}
	if result.Response != persistenceErrorText {
		t.Errorf("Response = %q, want persistence error text", result.Response)
	}
}

func TestProcessTurnResolverFailureFailsClosed(t *testing.T) {
	conv := &fakeConversations{}
	gw := &fakeGateway{}
	o := newTestOrchestrator(conv, gw, &fakeResolver{err: errors.New("regex engine exploded")})

	result, err := o.ProcessTurn(context.Background(), "u1", "add buy milk")
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if result.Response != toolErrorText {
		t.Errorf("Response = %q, want generic error text", result.Response)
	}
	if gw.deleteCalled {
		t.Error("no gateway call may happen when resolution fails")
	}
}
