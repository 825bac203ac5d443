package chunk

import (
	"strings"

	"github.com/chunkforge/chunkforge/engine/tokens"
)

// enforceBounds normalizes segment sizes in two ordered passes. Pass one
// splits every segment above MaxTokens on whitespace tokens without dropping
// any. Pass two merges segments below MinTokens into their successor with a
// single-space join; a merge that would overflow MaxTokens is re-split
// instead of kept whole. A trailing segment may stay below MinTokens when
// nothing is left to merge into — trailing content is never discarded.
func enforceBounds(segments []string, rule Rule, counter tokens.Counter) []string {
	segments = trimNonEmpty(segments)
	if len(segments) == 0 {
		return nil
	}

	if rule.MaxTokens > 0 {
		split := make([]string, 0, len(segments))
		for _, segment := range segments {
			if counter.Count(segment) > rule.MaxTokens {
				split = append(split, splitOversize(segment, rule.MaxTokens, counter)...)
			} else {
				split = append(split, segment)
			}
		}
		segments = split
	}

	if rule.MinTokens <= 0 {
		return segments
	}

	merged := make([]string, 0, len(segments))
	i := 0
	for i < len(segments) {
		current := segments[i]
		i++
		for counter.Count(current) < rule.MinTokens && i < len(segments) {
			candidate := current + " " + segments[i]
			i++
			if rule.MaxTokens > 0 && counter.Count(candidate) > rule.MaxTokens {
				parts := splitOversize(candidate, rule.MaxTokens, counter)
				merged = append(merged, parts[:len(parts)-1]...)
				current = parts[len(parts)-1]
				continue
			}
			current = candidate
		}
		merged = append(merged, current)
	}
	return merged
}

// splitOversize greedily accumulates whitespace tokens up to maxTokens and
// emits each full span. Token-conserving: joining the output reproduces the
// input's token sequence.
func splitOversize(segment string, maxTokens int, counter tokens.Counter) []string {
	words := strings.Fields(segment)
	parts := make([]string, 0, len(words)/maxTokens+1)
	current := make([]string, 0, maxTokens)
	count := 0
	for _, word := range words {
		wordTokens := counter.Count(word)
		if wordTokens < 1 {
			wordTokens = 1
		}
		if count+wordTokens > maxTokens && len(current) > 0 {
			parts = append(parts, strings.Join(current, " "))
			current = current[:0]
			count = 0
		}
		current = append(current, word)
		count += wordTokens
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return parts
}
