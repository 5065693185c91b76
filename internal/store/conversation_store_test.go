package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"taskchat/internal/models"
)

func TestConversationAppendAndRecent(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	ctx := context.Background()

	if _, err := s.Append(ctx, "u1", models.RoleUser, models.KindText, "", "add buy milk"); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if _, err := s.Append(ctx, "u1", models.RoleAssistant, models.KindText, "", "I've added \"Buy milk\" to your todo list (task 1)."); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if _, err := s.Append(ctx, "u2", models.RoleUser, models.KindText, "", "someone else's message"); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	messages, err := s.Recent(ctx, "u1", 50, 24*time.Hour)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len = %d, want 2 (user isolation)", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[1].Role != models.RoleAssistant {
		t.Errorf("messages not chronological: %v, %v", messages[0].Role, messages[1].Role)
	}
}

func TestConversationRecentLimitKeepsNewest(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four"} {
		if _, err := s.Append(ctx, "u1", models.RoleUser, models.KindText, "", content); err != nil {
			t.Fatal(err)
		}
	}

	messages, err := s.Recent(ctx, "u1", 2, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("len = %d, want 2", len(messages))
	}
	if messages[0].Content != "three" || messages[1].Content != "four" {
		t.Errorf("limit should keep the newest messages in order, got %q, %q", messages[0].Content, messages[1].Content)
	}
}

func TestConversationMetaRoundTrip(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	ctx := context.Background()

	meta, _ := json.Marshal(models.PendingAction{Tool: models.ToolDelete, TaskID: 5, Title: "Old task"})
	if _, err := s.Append(ctx, "u1", models.RoleAssistant, models.KindConfirmDelete, string(meta), "Are you sure you want to delete 'Old task'?"); err != nil {
		t.Fatal(err)
	}

	messages, err := s.Recent(ctx, "u1", 10, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	last := messages[len(messages)-1]
	pending := models.PendingActionFromMessage(&last)
	if pending == nil {
		t.Fatal("pending action should survive the round trip")
	}
	if pending.TaskID != 5 || pending.Tool != models.ToolDelete || pending.Title != "Old task" {
		t.Errorf("pending = %#v", pending)
	}
}

func TestToolCallRecords(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	ctx := context.Background()

	msgID, err := s.Append(ctx, "u1", models.RoleAssistant, models.KindText, "", "done")
	if err != nil {
		t.Fatal(err)
	}
	otherID, err := s.Append(ctx, "u2", models.RoleAssistant, models.KindText, "", "done")
	if err != nil {
		t.Fatal(err)
	}

	params := json.RawMessage(`{"title":"Buy milk"}`)
	result := json.RawMessage(`{"task_id":1,"title":"Buy milk"}`)
	if _, err := s.AppendToolCall(ctx, msgID, models.ToolCreate, params, result, true); err != nil {
		t.Fatalf("AppendToolCall error: %v", err)
	}
	if _, err := s.AppendToolCall(ctx, otherID, models.ToolList, params, result, true); err != nil {
		t.Fatal(err)
	}

	records, err := s.RecentToolCalls(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("RecentToolCalls error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1 (records joined through owner's messages)", len(records))
	}
	rec := records[0]
	if rec.ToolName != models.ToolCreate || !rec.Success {
		t.Errorf("record = %#v", rec)
	}
	if rec.ToolUseID == "" {
		t.Error("tool_use_id should be assigned")
	}

	var decoded models.CreateResult
	if err := json.Unmarshal(rec.Result, &decoded); err != nil {
		t.Fatalf("result payload not JSON: %v", err)
	}
	if decoded.TaskID != 1 {
		t.Errorf("decoded = %#v", decoded)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	ctx := context.Background()

	msgID, err := s.Append(ctx, "u1", models.RoleAssistant, models.KindText, "", "old turn")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendToolCall(ctx, msgID, models.ToolList, json.RawMessage(`{}`), json.RawMessage(`{"tasks":[]}`), true); err != nil {
		t.Fatal(err)
	}

	// Cutoff in the future: everything is "old".
	purged, err := s.PurgeOlderThan(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan error: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	messages, err := s.Recent(ctx, "u1", 10, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Errorf("messages remain after purge: %d", len(messages))
	}
	records, err := s.RecentToolCalls(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("tool calls remain after purge: %d", len(records))
	}
}
