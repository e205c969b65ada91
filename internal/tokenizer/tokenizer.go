// Package tokenizer counts model tokens with tiktoken.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding covers gpt-3.5-turbo and gpt-4 families.
const fallbackEncoding = "cl100k_base"

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// Counter counts tokens for one model.
type Counter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// New returns a Counter for model. Unknown models use cl100k_base.
// Loading an encoding may download its BPE ranks on first use.
func New(model string) (*Counter, error) {
	cacheMu.RLock()
	enc, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &Counter{encoding: enc, model: model}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load encoding for %s: %w", model, err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = enc
	cacheMu.Unlock()

	return &Counter{encoding: enc, model: model}, nil
}

// Model returns the model the counter was built for.
func (c *Counter) Model() string { return c.model }

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
