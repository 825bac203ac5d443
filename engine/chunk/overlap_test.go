package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectOverlap(t *testing.T) {
	t.Run("ShouldPassThroughWithZeroOverlap", func(t *testing.T) {
		out := injectOverlap([]string{"one two", "three four"}, 0)
		require.Len(t, out, 2)
		assert.Equal(t, "one two", out[0].text)
		assert.Equal(t, "three four", out[1].text)
		assert.Equal(t, 0, out[0].overlapTokens)
		assert.Equal(t, 0, out[1].overlapTokens)
	})
	t.Run("ShouldNeverPrefixFirstSegment", func(t *testing.T) {
		out := injectOverlap([]string{"one two three", "four"}, 2)
		assert.Equal(t, "one two three", out[0].text)
		assert.Equal(t, 0, out[0].overlapTokens)
	})
	t.Run("ShouldPrependTrailingWordsOfPredecessor", func(t *testing.T) {
		out := injectOverlap([]string{"one two three four", "five six"}, 2)
		require.Len(t, out, 2)
		assert.Equal(t, "three four five six", out[1].text)
		assert.Equal(t, 2, out[1].overlapTokens)
	})
	t.Run("ShouldCapOverlapAtPredecessorLength", func(t *testing.T) {
		out := injectOverlap([]string{"one two", "three"}, 5)
		require.Len(t, out, 2)
		assert.Equal(t, "one two three", out[1].text)
		assert.Equal(t, 2, out[1].overlapTokens)
	})
	t.Run("ShouldNotCompoundOverlapAcrossSegments", func(t *testing.T) {
		// Each overlap window comes from the pre-overlap predecessor, so the
		// third segment borrows only "d", never the "c" injected into it.
		out := injectOverlap([]string{"a b c", "d", "e"}, 2)
		require.Len(t, out, 3)
		assert.Equal(t, "b c d", out[1].text)
		assert.Equal(t, 2, out[1].overlapTokens)
		assert.Equal(t, "d e", out[2].text)
		assert.Equal(t, 1, out[2].overlapTokens)
	})
	t.Run("ShouldHandleEmptyInput", func(t *testing.T) {
		assert.Empty(t, injectOverlap(nil, 3))
	})
}
