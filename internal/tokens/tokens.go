// Package tokens estimates prompt sizes for the generator call using
// tiktoken, with a character-based estimator as fallback for models the
// tokenizer does not know.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens for a given model, falling back to an estimate when
// no tokenizer encoding is available.
type Counter struct {
	model string

	once  sync.Once
	codec tokenizer.Codec
}

// NewCounter creates a counter for model.
func NewCounter(model string) *Counter {
	return &Counter{model: model}
}

// Count returns the token count of text, and whether the count is an
// estimate rather than an exact tokenizer count.
func (c *Counter) Count(text string) (count int, estimated bool) {
	c.once.Do(func() {
		codec, err := tokenizer.ForModel(tokenizer.Model(strings.ToLower(c.model)))
		if err != nil {
			// Newer chat models share the o200k_base encoding.
			codec, err = tokenizer.Get(tokenizer.O200kBase)
		}
		if err == nil {
			c.codec = codec
		}
	})

	if c.codec == nil {
		return Estimate(text), true
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return Estimate(text), true
	}
	return len(ids), false
}

// Estimate approximates token count as one token per four characters, the
// usual rule of thumb for English prose.
func Estimate(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
