package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is used when a model-specific encoding cannot be resolved.
const defaultEncoding = "cl100k_base"

// Tiktoken counts tokens with a real BPE encoding via tiktoken-go. The
// argument may be an encoding name ("cl100k_base") or a model name
// ("gpt-4"); unresolvable names fall back to the default encoding.
type Tiktoken struct {
	encodingName string
	tke          *tiktoken.Tiktoken
	mu           sync.RWMutex
}

func NewTiktoken(modelOrEncoding string) (*Tiktoken, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}
	var encodingName string
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			tke, err = tiktoken.GetEncoding(defaultEncoding)
			if err != nil {
				return nil, fmt.Errorf("tokens: failed to get default encoding %q: %w", defaultEncoding, err)
			}
			encodingName = defaultEncoding
		} else {
			encodingName = encodingNameForModel(modelOrEncoding)
		}
	} else {
		encodingName = modelOrEncoding
	}
	return &Tiktoken{encodingName: encodingName, tke: tke}, nil
}

func (tc *Tiktoken) Count(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.tke == nil {
		return 0
	}
	return len(tc.tke.Encode(text, nil, nil))
}

// Encoding returns the name of the encoding actually in use.
func (tc *Tiktoken) Encoding() string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.encodingName
}

// modelEncodings maps common model families to their encodings. tiktoken-go
// resolves most names itself; the map only backs the reported encoding name.
var modelEncodings = map[string]string{
	"gpt-4":            "cl100k_base",
	"gpt-4-turbo":      "cl100k_base",
	"gpt-3.5-turbo":    "cl100k_base",
	"text-davinci-003": "p50k_base",
	"text-davinci-002": "p50k_base",
	"davinci":          "p50k_base",
	"code-davinci-002": "p50k_base",
}

func encodingNameForModel(model string) string {
	if encoding, ok := modelEncodings[model]; ok {
		return encoding
	}
	return defaultEncoding
}
