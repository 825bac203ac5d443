package chunk

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// charsPerToken is the rough character budget per whitespace token used to
// size the character-based recursive splitter from token-denominated rules.
const charsPerToken = 4

// newRecursiveSegmenter adapts langchaingo's recursive character splitter to
// the Segmenter contract, sized from a rule's token bounds. It covers inputs
// without structural markers that the other strategies key on.
func newRecursiveSegmenter(rule Rule) Segmenter {
	maxTokens := rule.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultRule().MaxTokens
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxTokens*charsPerToken),
		textsplitter.WithChunkOverlap(clampOverlap(rule.Overlap, maxTokens)*charsPerToken),
	)
	return func(text string) []string {
		segments, err := splitter.SplitText(text)
		if err != nil {
			// The splitter only fails on degenerate option combinations,
			// which clamping rules out; degrade to the whole text so bounds
			// enforcement still applies.
			return trimNonEmpty([]string{text})
		}
		return trimNonEmpty(segments)
	}
}

// clampOverlap keeps the overlap window strictly below the segment size.
func clampOverlap(overlap, size int) int {
	if overlap < 0 {
		return 0
	}
	if overlap >= size {
		if size <= 4 {
			return 0
		}
		return size / 4
	}
	return overlap
}
