package chunk

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultRuleKey is the table entry consulted when a document type has no
// rule of its own.
const DefaultRuleKey = "default"

// RuleSet is a document-type → Rule table. It is built once at startup and
// read-only afterwards, so concurrent resolution needs no locking.
type RuleSet struct {
	rules map[string]Rule
}

// NewRuleSet validates every entry and normalizes document types to lower
// case. A nil or empty map yields a table that resolves everything to the
// built-in default.
func NewRuleSet(rules map[string]Rule) (*RuleSet, error) {
	normalized := make(map[string]Rule, len(rules))
	for docType, rule := range rules {
		key := strings.ToLower(strings.TrimSpace(docType))
		if key == "" {
			return nil, fmt.Errorf("%w: empty document type", ErrInvalidRule)
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("chunk: rule %q: %w", key, err)
		}
		normalized[key] = rule
	}
	return &RuleSet{rules: normalized}, nil
}

// LoadRuleSet reads a YAML rule table keyed by document type.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunk: read rule table: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes a YAML rule table from raw bytes.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	raw := make(map[string]Rule)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("chunk: parse rule table: %w", err)
	}
	return NewRuleSet(raw)
}

// Resolve returns the rule for docType, falling back to the "default" entry
// and finally to the built-in default. Missing document types are never an
// error.
func (rs *RuleSet) Resolve(docType string) Rule {
	key := strings.ToLower(strings.TrimSpace(docType))
	if rs != nil {
		if rule, ok := rs.rules[key]; ok {
			return rule
		}
		if rule, ok := rs.rules[DefaultRuleKey]; ok {
			return rule
		}
	}
	return DefaultRule()
}

// Lookup is the strict variant of Resolve: it consults the table and its
// "default" entry only, reporting ErrRuleNotFound instead of synthesizing a
// built-in rule.
func (rs *RuleSet) Lookup(docType string) (Rule, error) {
	key := strings.ToLower(strings.TrimSpace(docType))
	if rs != nil {
		if rule, ok := rs.rules[key]; ok {
			return rule, nil
		}
		if rule, ok := rs.rules[DefaultRuleKey]; ok {
			return rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %q", ErrRuleNotFound, docType)
}

// Types returns the document types with explicit rules, sorted.
func (rs *RuleSet) Types() []string {
	if rs == nil {
		return nil
	}
	types := make([]string, 0, len(rs.rules))
	for docType := range rs.rules {
		types = append(types, docType)
	}
	sort.Strings(types)
	return types
}

// Len reports the number of explicit entries in the table.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}
