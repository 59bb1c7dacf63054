// Package tokencount provides token-budget estimation shared by the
// chunker and the community summariser.
package tokencount

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Well-known tiktoken encoding names.
const (
	EncodingCL100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
)

var modelEncodingMap = map[string]string{
	"gpt-4o":                 EncodingO200kBase,
	"gpt-4o-mini":            EncodingO200kBase,
	"gpt-4":                  EncodingCL100kBase,
	"gpt-4-turbo":            EncodingCL100kBase,
	"gpt-3.5-turbo":          EncodingCL100kBase,
	"text-embedding-ada-002": EncodingCL100kBase,
	"text-embedding-3-small": EncodingCL100kBase,
	"text-embedding-3-large": EncodingCL100kBase,
}

// EncodingForModel returns the tiktoken encoding name for a model,
// defaulting to cl100k_base for unknown models.
func EncodingForModel(model string) string {
	if enc, ok := modelEncodingMap[model]; ok {
		return enc
	}
	return EncodingCL100kBase
}

// Counter estimates token counts for a fixed encoding.
type Counter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewCounter builds a Counter for the given encoding name, defaulting to
// cl100k_base when empty.
func NewCounter(encodingName string) (*Counter, error) {
	if encodingName == "" {
		encodingName = EncodingCL100kBase
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("tokencount: get encoding %s: %w", encodingName, err)
	}
	return &Counter{encoding: enc, name: encodingName}, nil
}

// Count returns the number of tokens text encodes to.
func (c *Counter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// Name returns the underlying encoding name.
func (c *Counter) Name() string {
	return c.name
}

var (
	defaultCounter     *Counter
	defaultCounterOnce sync.Once
	defaultCounterErr  error
)

// Default returns a process-wide shared cl100k_base counter. Safe for
// concurrent use.
func Default() (*Counter, error) {
	defaultCounterOnce.Do(func() {
		defaultCounter, defaultCounterErr = NewCounter(EncodingCL100kBase)
	})
	return defaultCounter, defaultCounterErr
}

// MustDefault returns the default counter or panics on construction error.
func MustDefault() *Counter {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("tokencount: default counter: %v", err))
	}
	return c
}
