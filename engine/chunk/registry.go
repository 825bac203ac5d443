package chunk

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Built-in strategy names.
const (
	StrategyParagraph   = "by_paragraph"
	StrategyBlankLines  = "split_on_blank_lines"
	StrategySlide       = "by_slide"
	StrategyEmailBlock  = "by_email_block"
	StrategyEmailThread = "by_email_thread"
	StrategySentence    = "by_sentence"
	StrategyRows        = "split_on_rows"
	StrategyRecursive   = "recursive"
)

// Segmenter turns raw document text into an ordered sequence of candidate
// segments. Segmenters trim their output and drop empty results.
type Segmenter func(text string) []string

// Registry maps strategy names to segmenters. Built-ins are installed at
// construction; additional strategies register under unique names and can
// never shadow an existing one by accident.
type Registry struct {
	mu         sync.RWMutex
	segmenters map[string]Segmenter
	builtins   map[string]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{
		segmenters: make(map[string]Segmenter),
		builtins:   make(map[string]struct{}),
	}
	r.registerBuiltin(StrategyParagraph, splitByParagraph)
	r.registerBuiltin(StrategyBlankLines, splitByParagraph)
	r.registerBuiltin(StrategySlide, splitBySlide)
	r.registerBuiltin(StrategyEmailBlock, splitByEmailBlock)
	r.registerBuiltin(StrategyEmailThread, splitByEmailThread)
	r.registerBuiltin(StrategySentence, splitBySentence)
	r.registerBuiltin(StrategyRows, splitOnRows)
	r.registerBuiltin(StrategyRecursive, newRecursiveSegmenter(DefaultRule()))
	return r
}

func (r *Registry) registerBuiltin(name string, fn Segmenter) {
	r.segmenters[name] = fn
	r.builtins[name] = struct{}{}
}

// Register adds a strategy under a new name. Registering over any existing
// name, built-in or not, returns ErrStrategyExists; use Override to replace
// one deliberately.
func (r *Registry) Register(name string, fn Segmenter) error {
	key := normalizeStrategy(name)
	if key == "" {
		return fmt.Errorf("%w: empty name", ErrUnsupportedStrategy)
	}
	if fn == nil {
		return fmt.Errorf("chunk: strategy %q requires a segmenter", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.segmenters[key]; exists {
		return fmt.Errorf("%w: %q", ErrStrategyExists, key)
	}
	r.segmenters[key] = fn
	return nil
}

// Override replaces the segmenter registered under an existing name.
func (r *Registry) Override(name string, fn Segmenter) error {
	key := normalizeStrategy(name)
	if key == "" {
		return fmt.Errorf("%w: empty name", ErrUnsupportedStrategy)
	}
	if fn == nil {
		return fmt.Errorf("chunk: strategy %q requires a segmenter", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.segmenters[key]; !exists {
		return fmt.Errorf("%w: %q", ErrUnsupportedStrategy, key)
	}
	r.segmenters[key] = fn
	return nil
}

// Lookup returns the segmenter registered under name.
func (r *Registry) Lookup(name string) (Segmenter, error) {
	key := normalizeStrategy(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.segmenters[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, name)
	}
	return fn, nil
}

// Supports reports whether name resolves to a registered strategy.
func (r *Registry) Supports(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.segmenters[normalizeStrategy(name)]
	return ok
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.segmenters))
	for name := range r.segmenters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeStrategy(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
