package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleValidate(t *testing.T) {
	t.Run("ShouldAcceptCompleteRule", func(t *testing.T) {
		rule := Rule{Strategy: StrategyParagraph, MinTokens: 50, MaxTokens: 300, Overlap: 20}
		require.NoError(t, rule.Validate())
	})
	t.Run("ShouldAcceptZeroBounds", func(t *testing.T) {
		rule := Rule{Strategy: StrategySentence}
		require.NoError(t, rule.Validate())
	})
	t.Run("ShouldAcceptMinWithoutMax", func(t *testing.T) {
		rule := Rule{Strategy: StrategyParagraph, MinTokens: 500}
		require.NoError(t, rule.Validate())
	})
	t.Run("ShouldRejectEmptyStrategy", func(t *testing.T) {
		rule := Rule{Strategy: "   ", MinTokens: 10}
		err := rule.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRule)
	})
	t.Run("ShouldRejectNegativeMinTokens", func(t *testing.T) {
		rule := Rule{Strategy: StrategyParagraph, MinTokens: -1}
		assert.ErrorIs(t, rule.Validate(), ErrInvalidRule)
	})
	t.Run("ShouldRejectNegativeMaxTokens", func(t *testing.T) {
		rule := Rule{Strategy: StrategyParagraph, MaxTokens: -10}
		assert.ErrorIs(t, rule.Validate(), ErrInvalidRule)
	})
	t.Run("ShouldRejectNegativeOverlap", func(t *testing.T) {
		rule := Rule{Strategy: StrategyParagraph, Overlap: -5}
		assert.ErrorIs(t, rule.Validate(), ErrInvalidRule)
	})
	t.Run("ShouldRejectMinAboveMax", func(t *testing.T) {
		rule := Rule{Strategy: StrategyParagraph, MinTokens: 100, MaxTokens: 50}
		err := rule.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRule)
		assert.Contains(t, err.Error(), "exceeds")
	})
}

func TestDefaultRule(t *testing.T) {
	t.Run("ShouldMatchBuiltInBounds", func(t *testing.T) {
		rule := DefaultRule()
		assert.Equal(t, StrategyParagraph, rule.Strategy)
		assert.Equal(t, 50, rule.MinTokens)
		assert.Equal(t, 300, rule.MaxTokens)
		assert.Equal(t, 20, rule.Overlap)
		require.NoError(t, rule.Validate())
	})
}
