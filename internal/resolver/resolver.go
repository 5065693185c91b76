package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"taskchat/internal/models"
)

// TaskLister is the gateway's list operation, used for side-calls when
// a message names a task by title.
type TaskLister interface {
	List(ctx context.Context, userID string, status *models.TaskStatus) ([]models.Task, error)
}

// ToolCallLog provides the persisted tool-call history, newest first.
// Anaphoric references ("it", "the first one") are resolved against it.
type ToolCallLog interface {
	RecentToolCalls(ctx context.Context, userID string, limit int) ([]models.ToolCallRecord, error)
}

// HelpText describes the supported vocabulary; it is the answer to any
// message that matches no intent.
const HelpText = "I can help you manage your tasks. Try one of these:\n" +
	"• \"Add a task to buy groceries\"\n" +
	"• \"Show my tasks\"\n" +
	"• \"Change buy groceries to buy vegetables\"\n" +
	"• \"Mark buy groceries as done\"\n" +
	"• \"Delete the groceries task\""

// toolHistoryWindow bounds the backward scan for anaphora resolution
const toolHistoryWindow = 20

// Resolver maps (history, new message) to exactly one Decision using
// ordered pattern rules. It holds no state between calls: given the
// same persisted history and the same message it always returns the
// same decision.
type Resolver struct {
	lister TaskLister
	log    ToolCallLog
	rules  []rule
}

// New creates a resolver. extra rules (from the intent rules file) are
// evaluated before the built-in table.
func New(lister TaskLister, log ToolCallLog, extra []models.IntentRule) (*Resolver, error) {
	rules, err := compileRules(extra)
	if err != nil {
		return nil, err
	}
	return &Resolver{lister: lister, log: log, rules: rules}, nil
}

// Resolve classifies one inbound message against the conversation tail.
// history must be in chronological order, excluding the new message.
func (r *Resolver) Resolve(ctx context.Context, userID, message string, history []models.ConversationMessage) (Decision, error) {
	message = strings.TrimSpace(message)

	// A pending delete confirmation is reconstructed from the last
	// persisted assistant message, never from process memory.
	if pending := pendingConfirmation(history); pending != nil {
		token := normalizeToken(message)
		if affirmativeTokens[token] {
			return ConfirmationReceived{Confirmed: true, Pending: *pending}, nil
		}
		if negativeTokens[token] {
			return ConfirmationReceived{Confirmed: false, Pending: *pending}, nil
		}
		// Anything else abandons the pending action and is treated as
		// a fresh intent.
	}

	for _, rl := range r.rules {
		m := rl.pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		switch rl.intent {
		case intentList:
			return List{Status: listFilter(message)}, nil
		case intentCreate:
			title := cleanTitle(m[1])
			if title == "" {
				return NeedsClarification{Question: "What should the task say?"}, nil
			}
			return Create{Title: title}, nil
		case intentComplete:
			return r.resolveTarget(ctx, userID, m[1], func(id int64, title string) Decision {
				return Complete{TaskID: id, Title: title}
			})
		case intentDelete:
			return r.resolveTarget(ctx, userID, m[1], func(id int64, title string) Decision {
				return Delete{TaskID: id, Title: title}
			})
		case intentUpdate:
			newTitle := cleanTitle(m[2])
			if newTitle == "" {
				return NeedsClarification{Question: "What should the new title be?"}, nil
			}
			return r.resolveTarget(ctx, userID, m[1], func(id int64, title string) Decision {
				return Update{TaskID: id, Title: title, NewTitle: newTitle}
			})
		}
	}

	return NeedsClarification{Question: HelpText}, nil
}

// pendingConfirmation returns the destructive action awaiting a yes/no
// if and only if the conversation tail is a confirmation prompt.
func pendingConfirmation(history []models.ConversationMessage) *models.PendingAction {
	if len(history) == 0 {
		return nil
	}
	last := history[len(history)-1]
	return models.PendingActionFromMessage(&last)
}

// listFilter derives an optional status filter from list phrasing
func listFilter(message string) *models.TaskStatus {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "completed"), strings.Contains(lower, "finished"), strings.Contains(lower, "done"):
		status := models.TaskStatusCompleted
		return &status
	case strings.Contains(lower, "pending"), strings.Contains(lower, "open"), strings.Contains(lower, "remaining"), strings.Contains(lower, "unfinished"):
		status := models.TaskStatusPending
		return &status
	}
	return nil
}

// resolveTarget binds a captured task reference to a concrete task id,
// then builds the decision via bind. Resolution order: explicit numeric
// id, ordinal against the last listing, anaphor against tool-call
// history, then title substring match against the current task list.
// Ordinals and anaphors are matched against the raw reference before
// article stripping: cleanRef removes "that ", which would turn
// "that one" into a title search.
func (r *Resolver) resolveTarget(ctx context.Context, userID, rawRef string, bind func(id int64, title string) Decision) (Decision, error) {
	raw := strings.TrimSpace(strings.Trim(strings.TrimSpace(rawRef), `"'`))
	raw = strings.TrimSpace(strings.TrimRight(raw, ".!?,"))

	ref := cleanRef(rawRef)
	if ref == "" {
		return NeedsClarification{Question: "Which task do you mean?"}, nil
	}

	if m := numericRe.FindStringSubmatch(strings.ToLower(ref)); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			title := r.titleForID(ctx, userID, id)
			return bind(id, title), nil
		}
	}

	if m := ordinalRe.FindStringSubmatch(raw); m != nil {
		return r.resolveOrdinal(ctx, userID, strings.ToLower(m[1]), bind)
	}

	if anaphorRe.MatchString(raw) {
		return r.resolveAnaphor(ctx, userID, bind)
	}

	return r.resolveByTitle(ctx, userID, ref, bind)
}

// titleForID looks the title up for nicer responses; the id is bound
// either way and the gateway remains the ownership authority.
func (r *Resolver) titleForID(ctx context.Context, userID string, id int64) string {
	tasks, err := r.lister.List(ctx, userID, nil)
	if err == nil {
		for _, t := range tasks {
			if t.ID == id {
				return t.Title
			}
		}
	}
	return fmt.Sprintf("task %d", id)
}

// resolveAnaphor scans the persisted tool-call history backward for the
// last successful create or list and binds "it" to what that call
// established.
func (r *Resolver) resolveAnaphor(ctx context.Context, userID string, bind func(id int64, title string) Decision) (Decision, error) {
	records, err := r.log.RecentToolCalls(ctx, userID, toolHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tool history: %w", err)
	}

	for _, rec := range records {
		if !rec.Success {
			continue
		}
		switch rec.ToolName {
		case models.ToolCreate:
			var result models.CreateResult
			if err := json.Unmarshal(rec.Result, &result); err != nil {
				continue
			}
			return bind(result.TaskID, result.Title), nil
		case models.ToolList:
			var result models.ListResult
			if err := json.Unmarshal(rec.Result, &result); err != nil {
				continue
			}
			switch len(result.Tasks) {
			case 0:
				return NeedsClarification{Question: "Which task do you mean? Your last list was empty."}, nil
			case 1:
				return bind(result.Tasks[0].ID, result.Tasks[0].Title), nil
			default:
				return NeedsClarification{Question: ambiguousQuestion(result.Tasks)}, nil
			}
		}
	}

	return NeedsClarification{Question: "Which task do you mean? You can name it or give its number."}, nil
}

// resolveOrdinal binds "the first one" against the most recently listed
// tasks in the tool-call history.
func (r *Resolver) resolveOrdinal(ctx context.Context, userID, ordinal string, bind func(id int64, title string) Decision) (Decision, error) {
	records, err := r.log.RecentToolCalls(ctx, userID, toolHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tool history: %w", err)
	}

	for _, rec := range records {
		if !rec.Success || rec.ToolName != models.ToolList {
			continue
		}
		var result models.ListResult
		if err := json.Unmarshal(rec.Result, &result); err != nil {
			continue
		}
		if len(result.Tasks) == 0 {
			return NeedsClarification{Question: "Which task do you mean? Your last list was empty."}, nil
		}
		idx := len(result.Tasks) // "last"
		if ordinal != "last" {
			idx = ordinalIndex[ordinal]
		}
		if idx < 1 || idx > len(result.Tasks) {
			return NeedsClarification{Question: fmt.Sprintf("Your last list only had %d tasks. Which one do you mean?", len(result.Tasks))}, nil
		}
		t := result.Tasks[idx-1]
		return bind(t.ID, t.Title), nil
	}

	return NeedsClarification{Question: "I don't have a recent list to count from. Try \"show my tasks\" first."}, nil
}

// resolveByTitle matches the reference against current task titles via
// a list side-call. Exactly one best match binds; several equally
// plausible candidates come back as a clarifying question.
func (r *Resolver) resolveByTitle(ctx context.Context, userID, ref string, bind func(id int64, title string) Decision) (Decision, error) {
	tasks, err := r.lister.List(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for reference match: %w", err)
	}

	lowerRef := strings.ToLower(ref)
	bestScore := 0
	var candidates []models.Task
	for _, t := range tasks {
		lowerTitle := strings.ToLower(t.Title)
		score := 0
		switch {
		case lowerTitle == lowerRef:
			score = 3
		case strings.Contains(lowerTitle, lowerRef):
			score = 2
		case strings.Contains(lowerRef, lowerTitle):
			score = 1
		}
		if score == 0 {
			continue
		}
		if score > bestScore {
			bestScore = score
			candidates = candidates[:0]
		}
		if score == bestScore {
			candidates = append(candidates, t)
		}
	}

	switch len(candidates) {
	case 0:
		return NeedsClarification{Question: fmt.Sprintf("I couldn't find a task matching %q. You can say \"show my tasks\" to see them.", ref)}, nil
	case 1:
		return bind(candidates[0].ID, candidates[0].Title), nil
	default:
		listed := make([]models.ListedTask, len(candidates))
		for i, t := range candidates {
			listed[i] = models.ListedTask{ID: t.ID, Title: t.Title, Completed: t.IsCompleted()}
		}
		return NeedsClarification{Question: ambiguousQuestion(listed)}, nil
	}
}

func ambiguousQuestion(tasks []models.ListedTask) string {
	var b strings.Builder
	b.WriteString("I found more than one matching task. Which one do you mean?\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "• %d. %s\n", t.ID, t.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}
