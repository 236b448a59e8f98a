package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ips-guard/internal/model"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []model.Rule `yaml:"rules" json:"rules"`
}

// LoadRulesFromJSON loads rules from a JSON rules file
func LoadRulesFromJSON(filename string) ([]model.Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f ruleFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", filename, err)
	}
	return f.Rules, nil
}

// LoadRulesFromYAML loads rules from a YAML rules file
func LoadRulesFromYAML(filename string) ([]model.Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules file %s: %w", filename, err)
	}
	return f.Rules, nil
}

// LoadRules picks the decoder from the file extension. Unknown extensions
// are tried as YAML first, then JSON.
func LoadRules(filename string) ([]model.Rule, error) {
	if filename == "" {
		return nil, fmt.Errorf("rules file path is empty")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadRulesFromYAML(filename)
	case ".json":
		return LoadRulesFromJSON(filename)
	}

	if rules, err := LoadRulesFromYAML(filename); err == nil {
		return rules, nil
	}
	return LoadRulesFromJSON(filename)
}

// LoadRuleFiles concatenates the rules of every file in order.
func LoadRuleFiles(filenames []string) ([]model.Rule, error) {
	var all []model.Rule
	for _, name := range filenames {
		rules, err := LoadRules(name)
		if err != nil {
			return nil, err
		}
		all = append(all, rules...)
	}
	return all, nil
}
