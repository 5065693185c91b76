package preflight

import (
	"fmt"
	"log"

	"taskchat/internal/config"
	"taskchat/internal/database"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	db  *database.DB
	cfg *config.Config
}

// NewChecker creates a new preflight checker
func NewChecker(db *database.DB, cfg *config.Config) *Checker {
	return &Checker{db: db, cfg: cfg}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(),
		c.checkDatabaseSchema(),
		c.checkJWTSecret(),
		c.checkIntentRules(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("\n📊 Pre-flight summary: %d passed, %d failed, %d warnings\n", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkDatabaseConnection verifies database connectivity
func (c *Checker) checkDatabaseConnection() CheckResult {
	if err := c.db.Ping(); err != nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Cannot connect to database",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Database Connection",
		Status:  "pass",
		Message: "Database connection successful",
	}
}

// checkDatabaseSchema verifies all required tables exist
func (c *Checker) checkDatabaseSchema() CheckResult {
	requiredTables := []string{
		"users",
		"tasks",
		"conversation_messages",
		"tool_calls",
	}

	for _, table := range requiredTables {
		if !c.db.TableExists(table) {
			return CheckResult{
				Name:    "Database Schema",
				Status:  "fail",
				Message: fmt.Sprintf("Required table '%s' not found", table),
			}
		}
	}

	return CheckResult{
		Name:    "Database Schema",
		Status:  "pass",
		Message: fmt.Sprintf("All %d required tables present", len(requiredTables)),
	}
}

// checkJWTSecret verifies auth is configured where it must be
func (c *Checker) checkJWTSecret() CheckResult {
	if c.cfg.JWTSecret == "" {
		if c.cfg.IsProduction() {
			return CheckResult{
				Name:    "JWT Secret",
				Status:  "fail",
				Message: "JWT_SECRET is required in production",
			}
		}
		return CheckResult{
			Name:    "JWT Secret",
			Status:  "warning",
			Message: "JWT_SECRET not set; auth runs in development bypass mode",
		}
	}

	if len(c.cfg.JWTSecret) < 32 {
		return CheckResult{
			Name:    "JWT Secret",
			Status:  "warning",
			Message: "JWT_SECRET is shorter than 32 characters",
		}
	}

	return CheckResult{
		Name:    "JWT Secret",
		Status:  "pass",
		Message: "JWT secret configured",
	}
}

// checkIntentRules verifies the optional custom rules file parses
func (c *Checker) checkIntentRules() CheckResult {
	if c.cfg.IntentRulesPath == "" {
		return CheckResult{
			Name:    "Intent Rules",
			Status:  "pass",
			Message: "No custom rules configured; using built-in patterns",
		}
	}

	rules, err := config.LoadIntentRules(c.cfg.IntentRulesPath)
	if err != nil {
		return CheckResult{
			Name:    "Intent Rules",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot load intent rules from %s", c.cfg.IntentRulesPath),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Intent Rules",
		Status:  "pass",
		Message: fmt.Sprintf("Loaded %d custom intent rules", len(rules.Rules)),
	}
}
