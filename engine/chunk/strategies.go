package chunk

import (
	"regexp"
	"strings"
)

// slideMarker is the literal boundary some presentation loaders emit when
// form feeds are stripped upstream.
const slideMarker = "---SLIDE---"

var (
	newlinePattern   = regexp.MustCompile(`\r\n|\r`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n`)
	sentencePattern  = regexp.MustCompile(`[.!?]\s+`)
)

// splitByParagraph splits on runs of one-or-more blank lines.
func splitByParagraph(text string) []string {
	normalized := newlinePattern.ReplaceAllString(text, "\n")
	return trimNonEmpty(paragraphPattern.Split(normalized, -1))
}

// splitBySlide splits presentation text on slide boundaries: form feeds
// first, then the literal marker, else the whole text is one slide.
func splitBySlide(text string) []string {
	var slides []string
	switch {
	case strings.Contains(text, "\f"):
		slides = strings.Split(text, "\f")
	case strings.Contains(text, slideMarker):
		slides = strings.Split(text, slideMarker)
	default:
		slides = []string{text}
	}
	return trimNonEmpty(slides)
}

// splitBySentence splits on terminal punctuation followed by whitespace,
// keeping the punctuation attached to the preceding sentence.
func splitBySentence(text string) []string {
	matches := sentencePattern.FindAllStringIndex(text, -1)
	sentences := make([]string, 0, len(matches)+1)
	start := 0
	for _, m := range matches {
		// m[0]+1 is the end of the punctuation mark itself.
		sentences = append(sentences, text[start:m[0]+1])
		start = m[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return trimNonEmpty(sentences)
}

// splitOnRows emits one segment per non-empty line, for tabular text already
// flattened by a loader.
func splitOnRows(text string) []string {
	normalized := newlinePattern.ReplaceAllString(text, "\n")
	return trimNonEmpty(strings.Split(normalized, "\n"))
}

func trimNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
