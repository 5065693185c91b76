package config

import (
	"fmt"
	"os"

	"taskchat/internal/models"

	"gopkg.in/yaml.v3"
)

// LoadIntentRules loads extra intent-pattern rules from a YAML file.
// Deployments use this to extend the built-in vocabulary without a
// rebuild; the resolver stays deterministic because rules are ordered.
func LoadIntentRules(filePath string) (*models.IntentRulesConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent rules file: %w", err)
	}

	var config models.IntentRulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse intent rules YAML: %w", err)
	}

	return &config, nil
}
