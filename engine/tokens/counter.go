// Package tokens provides the token counters that drive every bound and
// overlap computation in the chunking engine. Counters are pure and
// stateless; a single split call must route all measurements through one
// counter so bounds stay internally consistent.
package tokens

import "strings"

// Counter maps a text span to an integer token count.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to the Counter interface.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// Whitespace counts whitespace-delimited tokens. It is the default counter:
// cheap, deterministic, and the unit every rule bound is written against.
type Whitespace struct{}

func (Whitespace) Count(text string) int {
	return len(strings.Fields(text))
}

// Heuristic approximates BPE tokenizer output as len(text)/4, floored at one
// token. Useful for budgeting against model context windows without paying
// for a real tokenizer pass.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
