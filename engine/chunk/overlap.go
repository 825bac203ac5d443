package chunk

import "strings"

// overlapped pairs a final chunk text with the number of tokens it borrowed
// from its predecessor.
type overlapped struct {
	text          string
	overlapTokens int
}

// injectOverlap prepends the trailing overlap tokens of each segment's
// predecessor. The window is always taken from the pre-overlap previous
// segment, so overlap never compounds across a chain of short segments. The
// first segment passes through with a zero overlap count.
func injectOverlap(segments []string, overlap int) []overlapped {
	out := make([]overlapped, 0, len(segments))
	for i, segment := range segments {
		if overlap <= 0 || i == 0 {
			out = append(out, overlapped{text: segment})
			continue
		}
		prevWords := strings.Fields(segments[i-1])
		n := min(overlap, len(prevWords))
		if n == 0 {
			out = append(out, overlapped{text: segment})
			continue
		}
		prefix := strings.Join(prevWords[len(prevWords)-n:], " ")
		out = append(out, overlapped{text: prefix + " " + segment, overlapTokens: n})
	}
	return out
}
