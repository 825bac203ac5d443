package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Run("ShouldInstallAllBuiltIns", func(t *testing.T) {
		registry := NewRegistry()
		for _, name := range []string{
			StrategyParagraph,
			StrategyBlankLines,
			StrategySlide,
			StrategyEmailBlock,
			StrategyEmailThread,
			StrategySentence,
			StrategyRows,
			StrategyRecursive,
		} {
			assert.True(t, registry.Supports(name), "missing built-in %q", name)
		}
	})
	t.Run("ShouldNormalizeLookups", func(t *testing.T) {
		registry := NewRegistry()
		assert.True(t, registry.Supports("  BY_PARAGRAPH "))
		fn, err := registry.Lookup("By_Sentence")
		require.NoError(t, err)
		require.NotNil(t, fn)
	})
}

func TestRegistryRegister(t *testing.T) {
	t.Run("ShouldRegisterCustomStrategy", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register("by_pipe", func(text string) []string {
			return trimNonEmpty(strings.Split(text, "|"))
		})
		require.NoError(t, err)
		fn, err := registry.Lookup("by_pipe")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, fn("a|b"))
	})
	t.Run("ShouldRejectDuplicateName", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(StrategyParagraph, splitByParagraph)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStrategyExists)
	})
	t.Run("ShouldRejectEmptyName", func(t *testing.T) {
		registry := NewRegistry()
		assert.ErrorIs(t, registry.Register("   ", splitByParagraph), ErrUnsupportedStrategy)
	})
	t.Run("ShouldRejectNilSegmenter", func(t *testing.T) {
		registry := NewRegistry()
		assert.Error(t, registry.Register("by_pipe", nil))
	})
}

func TestRegistryOverride(t *testing.T) {
	t.Run("ShouldReplaceExistingStrategy", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Override(StrategyRows, func(string) []string {
			return []string{"overridden"}
		})
		require.NoError(t, err)
		fn, err := registry.Lookup(StrategyRows)
		require.NoError(t, err)
		assert.Equal(t, []string{"overridden"}, fn("row1\nrow2"))
	})
	t.Run("ShouldRejectUnknownName", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Override("by_pipe", splitByParagraph)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedStrategy)
	})
}

func TestRegistryLookup(t *testing.T) {
	t.Run("ShouldErrorOnUnknownStrategy", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Lookup("blank_line")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedStrategy)
		assert.Contains(t, err.Error(), "blank_line")
	})
}

func TestRegistryNames(t *testing.T) {
	t.Run("ShouldListNamesSorted", func(t *testing.T) {
		registry := NewRegistry()
		names := registry.Names()
		require.NotEmpty(t, names)
		assert.IsIncreasing(t, names)
		assert.Contains(t, names, StrategyParagraph)
		assert.Contains(t, names, StrategyRecursive)
	})
}
