package chunk

import (
	"fmt"
	"strings"
)

// Rule governs how one document type is segmented, bounded, and overlapped.
// A zero MinTokens disables merging, a zero MaxTokens disables splitting.
type Rule struct {
	Strategy  string `json:"strategy"   yaml:"strategy"`
	MinTokens int    `json:"min_tokens" yaml:"min_tokens"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens"`
	Overlap   int    `json:"overlap"    yaml:"overlap"`
}

// Validate rejects inconsistent rules at construction time. Bounds are never
// silently clamped.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.Strategy) == "" {
		return fmt.Errorf("%w: strategy is required", ErrInvalidRule)
	}
	if r.MinTokens < 0 {
		return fmt.Errorf("%w: min_tokens %d cannot be negative", ErrInvalidRule, r.MinTokens)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens %d cannot be negative", ErrInvalidRule, r.MaxTokens)
	}
	if r.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d cannot be negative", ErrInvalidRule, r.Overlap)
	}
	if r.MinTokens > 0 && r.MaxTokens > 0 && r.MinTokens > r.MaxTokens {
		return fmt.Errorf("%w: min_tokens %d exceeds max_tokens %d", ErrInvalidRule, r.MinTokens, r.MaxTokens)
	}
	return nil
}

// DefaultRule returns the built-in rule applied when a document type has no
// table entry and the table carries no "default" either.
func DefaultRule() Rule {
	return Rule{
		Strategy:  StrategyParagraph,
		MinTokens: 50,
		MaxTokens: 300,
		Overlap:   20,
	}
}
