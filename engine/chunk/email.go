package chunk

import (
	"regexp"
	"strings"
)

// Quoted-reply markers excised by the email strategies. Quote depth is the
// count of leading '>' characters; the header patterns catch clients that
// cite without prefixing.
var (
	replyHeaderPattern     = regexp.MustCompile(`(?i)^On\s+(.+?)\s+wrote:\s*$`)
	fromHeaderPattern      = regexp.MustCompile(`(?i)^From:\s*.*$`)
	originalMessagePattern = regexp.MustCompile(`(?i)^[-─]{3,}\s*Original Message\s*[-─]{3,}`)
	sectionBreakPattern    = regexp.MustCompile(`\n\s*[-_=]{3,}\s*\n`)
)

// splitByEmailBlock excises quoted replies, then splits the remaining text
// into paragraph-level blocks. Quoted content is redundant in retrieval: the
// original message is indexed on its own.
func splitByEmailBlock(text string) []string {
	lines := strings.Split(newlinePattern.ReplaceAllString(text, "\n"), "\n")
	cleaned := make([]string, 0, len(lines))
	inQuoteBlock := false
	for _, line := range lines {
		quoteDepth := len(line) - len(strings.TrimLeft(line, ">"))
		isQuoteHeader := replyHeaderPattern.MatchString(line) ||
			fromHeaderPattern.MatchString(line) ||
			originalMessagePattern.MatchString(line)
		if quoteDepth > 0 || isQuoteHeader {
			inQuoteBlock = true
			continue
		}
		if inQuoteBlock && strings.TrimSpace(line) == "" {
			// Blank lines inside a quote block belong to the quote.
			continue
		}
		if inQuoteBlock {
			inQuoteBlock = false
		}
		cleaned = append(cleaned, line)
	}
	cleanedText := strings.Join(cleaned, "\n")

	blocks := make([]string, 0, 4)
	for _, section := range sectionBreakPattern.Split(cleanedText, -1) {
		blocks = append(blocks, trimNonEmpty(paragraphPattern.Split(section, -1))...)
	}
	if len(blocks) > 0 {
		return blocks
	}
	if trimmed := strings.TrimSpace(cleanedText); trimmed != "" {
		return []string{trimmed}
	}
	return nil
}

// splitByEmailThread reconstructs the distinct authored messages of a reply
// chain. Each reply header starts a new message attributed to its sender;
// the quoted lines that follow a header are dropped. Text without thread
// markers falls back to quote excision.
func splitByEmailThread(text string) []string {
	lines := strings.Split(newlinePattern.ReplaceAllString(text, "\n"), "\n")
	var messages []string
	var current []string
	currentSender := ""

	i := 0
	for i < len(lines) {
		line := lines[i]
		if m := replyHeaderPattern.FindStringSubmatch(line); m != nil {
			if msg := threadMessage(current, currentSender); msg != "" {
				messages = append(messages, msg)
			}
			current = nil
			currentSender = m[1]
			// Skip the quoted content directly below the header.
			j := i + 1
			for j < len(lines) && (strings.HasPrefix(lines[j], ">") || strings.TrimSpace(lines[j]) == "") {
				j++
			}
			i = j
			continue
		}
		if !strings.HasPrefix(line, ">") {
			current = append(current, line)
		}
		i++
	}
	if msg := threadMessage(current, currentSender); msg != "" {
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return splitByEmailBlock(text)
	}
	return messages
}

func threadMessage(lines []string, sender string) string {
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	if msg == "" {
		return ""
	}
	if sender != "" {
		return "[Reply from: " + sender + "]\n" + msg
	}
	return msg
}
