package resolver

import "taskchat/internal/models"

// Decision is the closed set of outcomes a resolved message can have.
// Consumers switch over the concrete types; the marker method keeps the
// set sealed to this package.
type Decision interface {
	isDecision()
}

// Create adds a new task
type Create struct {
	Title       string
	Description string
}

// List fetches the user's tasks, optionally filtered by status
type List struct {
	Status *models.TaskStatus
}

// Update renames a bound task
type Update struct {
	TaskID   int64
	Title    string // current title, for response composition
	NewTitle string
}

// Complete marks a bound task done
type Complete struct {
	TaskID int64
	Title  string
}

// Delete proposes removal of a bound task. The orchestrator gates it
// behind a confirmation prompt before any gateway call.
type Delete struct {
	TaskID int64
	Title  string
}

// NeedsClarification asks the user a question instead of acting
type NeedsClarification struct {
	Question string
}

// ConfirmationReceived is the yes/no answer to a pending destructive
// action reconstructed from the previous assistant message.
type ConfirmationReceived struct {
	Confirmed bool
	Pending   models.PendingAction
}

func (Create) isDecision()               {}
func (List) isDecision()                 {}
func (Update) isDecision()               {}
func (Complete) isDecision()             {}
func (Delete) isDecision()               {}
func (NeedsClarification) isDecision()   {}
func (ConfirmationReceived) isDecision() {}
