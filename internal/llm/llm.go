// Package llm describes the pretrained-model runtime the chat gateway drives: a tokenizer that
// maps text to token ids and back, and a causal model that extends a token sequence.
package llm

import (
	"context"
	"errors"
)

// ErrNotReady is returned by a Loader when the runtime is reachable but has no model loaded.
var ErrNotReady = errors.New("model runtime not ready")

// Tokenizer encodes prompts and decodes generated sequences.
type Tokenizer interface {
	// Encode returns the token ids for text, including the model's leading special tokens.
	Encode(ctx context.Context, text string) ([]int, error)
	// Decode renders ids as text. With skipSpecial, BOS/EOS and similar tokens are dropped.
	Decode(ctx context.Context, ids []int, skipSpecial bool) (string, error)
	// EOSTokenID is the end-of-sequence id, also used as the padding id.
	EOSTokenID() int
}

// Generator extends a prompt with sampled tokens.
type Generator interface {
	// Generate returns the prompt ids followed by the generated continuation.
	Generate(ctx context.Context, input []int, opts GenerateOptions) ([]int, error)
}

// GenerateOptions are passed through to the runtime without range checks.
type GenerateOptions struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	DoSample     bool
	PadTokenID   int
}

// LoadOptions select which model to load and how to place it.
type LoadOptions struct {
	ModelID   string
	Precision string // e.g. "float16"
	Device    string // "auto" lets the runtime choose
}

// Handle is a loaded tokenizer and model pair bound to a device. It is immutable once returned
// by a Loader and safe to share between requests.
type Handle struct {
	ModelID   string
	Device    string
	Precision string
	Tokenizer Tokenizer
	Model     Generator
}

// Loader acquires a Handle.
type Loader interface {
	Load(ctx context.Context, opts LoadOptions) (*Handle, error)
}
