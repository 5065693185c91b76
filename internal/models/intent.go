package models

// IntentRule is one user-supplied classification rule. Custom rules are
// evaluated before the built-in ones, in file order.
type IntentRule struct {
	// Intent is one of: create, list, update, complete, delete
	Intent string `yaml:"intent" json:"intent"`
	// Pattern is a Go regular expression. Capture group 1 carries the
	// title (create) or the task reference (update/complete/delete);
	// group 2 carries the new title for update rules.
	Pattern string `yaml:"pattern" json:"pattern"`
}

// IntentRulesConfig is the top-level structure of the intent rules file
type IntentRulesConfig struct {
	Rules []IntentRule `yaml:"rules" json:"rules"`
}
