package resolver

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"taskchat/internal/models"
)

type intent string

const (
	intentCreate   intent = "create"
	intentList     intent = "list"
	intentUpdate   intent = "update"
	intentComplete intent = "complete"
	intentDelete   intent = "delete"
)

// rule is one ordered classification pattern. Group 1 captures the task
// title (create) or the task reference (complete/delete/update); group 2
// captures the new title for update rules.
type rule struct {
	intent  intent
	pattern *regexp.Regexp
}

// builtinRules are evaluated in order; the first match wins. The order
// (list, create, complete, delete, update) and the verb vocabulary
// follow the keyword grammar the chat agent has always understood.
var builtinRules = []rule{
	{intentList, regexp.MustCompile(`(?i)^(?:show|list|get|fetch|display|view|what(?:'s| is| are)?)\b.*\b(?:tasks?|todos?|list|items)\b`)},

	{intentCreate, regexp.MustCompile(`(?i)^(?:add|create|new task:?|remember to|remind me to)\s+(?:a\s+(?:new\s+)?task\s+(?:to|for|called)\s+|a\s+(?:new\s+)?task:?\s+|to\s+|task:?\s+)?(.+)$`)},

	{intentComplete, regexp.MustCompile(`(?i)^(?:mark|set|tick)\s+(?:task\s+)?(.+?)\s+(?:as\s+)?(?:done|complete|completed|finished)$`)},
	{intentComplete, regexp.MustCompile(`(?i)^(?:complete|finish)\s+(?:task\s+)?(.+)$`)},
	{intentComplete, regexp.MustCompile(`(?i)^(?:task\s+)?(.+?)\s+is\s+(?:done|complete|completed|finished)$`)},

	{intentDelete, regexp.MustCompile(`(?i)^(?:delete|remove|erase|drop)\s+(?:task\s+)?(.+)$`)},

	{intentUpdate, regexp.MustCompile(`(?i)^(?:update|change|rename|edit)\s+(?:task\s+)?(.+?)\s+(?:to|to say|with)\s+['"]?(.+?)['"]?$`)},
}

// compileRules prepends user-supplied rules (from the intent rules
// file) to the built-in table, preserving file order.
func compileRules(extra []models.IntentRule) ([]rule, error) {
	rules := make([]rule, 0, len(extra)+len(builtinRules))
	for _, r := range extra {
		in := intent(r.Intent)
		switch in {
		case intentCreate, intentList, intentUpdate, intentComplete, intentDelete:
		default:
			return nil, fmt.Errorf("unknown intent %q in custom rule", r.Intent)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for intent %q: %w", r.Intent, err)
		}
		rules = append(rules, rule{intent: in, pattern: re})
	}
	return append(rules, builtinRules...), nil
}

// anaphorRe matches pronoun references to a task established earlier in
// the conversation.
var anaphorRe = regexp.MustCompile(`(?i)^(?:it|that|this|that one|this one|the last one|the latest one)$`)

// ordinalRe matches positional references into the most recently listed
// tasks.
var ordinalRe = regexp.MustCompile(`(?i)^(?:the\s+)?(first|second|third|fourth|fifth|last|[0-9]+(?:st|nd|rd|th))(?:\s+(?:one|task|todo))?$`)

var ordinalIndex = map[string]int{
	"first": 1, "1st": 1,
	"second": 2, "2nd": 2,
	"third": 3, "3rd": 3,
	"fourth": 4, "4th": 4,
	"fifth": 5, "5th": 5,
}

var numericRe = regexp.MustCompile(`^(?:task\s+|todo\s+|number\s+|#)?([0-9]+)$`)

var affirmativeTokens = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true,
	"sure": true, "ok": true, "okay": true, "confirm": true,
	"do it": true, "go ahead": true, "please do": true,
}

var negativeTokens = map[string]bool{
	"no": true, "n": true, "nope": true, "nah": true,
	"cancel": true, "stop": true, "dont": true, "do not": true,
	"never mind": true, "nevermind": true,
}

// normalizeToken lowercases and strips surrounding punctuation for
// yes/no detection.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".!?, ")
	return strings.ReplaceAll(s, "'", "")
}

// cleanRef strips articles, quoting and filler around a captured task
// reference ("the milk task" -> "milk").
func cleanRef(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.Trim(ref, `"'`)
	lower := strings.ToLower(ref)
	for _, prefix := range []string{"the ", "my ", "that "} {
		if strings.HasPrefix(lower, prefix) {
			ref = ref[len(prefix):]
			lower = lower[len(prefix):]
		}
	}
	for _, suffix := range []string{" task", " todo", " item"} {
		if strings.HasSuffix(lower, suffix) {
			ref = ref[:len(ref)-len(suffix)]
			lower = lower[:len(lower)-len(suffix)]
		}
	}
	return strings.TrimSpace(strings.Trim(ref, ".!?,"))
}

// cleanTitle tidies a captured creation title the way the chat agent
// always has: strip quotes and trailing punctuation, capitalize the
// first letter.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.TrimRight(title, ".!?")
	title = strings.TrimSpace(title)
	if title == "" {
		return title
	}
	r := []rune(title)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
