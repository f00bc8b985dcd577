// Package llmtest provides an in-memory model runtime for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"harihar-backend/internal/llm"
)

const (
	BOS = 1
	EOS = 2
)

// Tokenizer maps every rune to its code point and prepends BOS on Encode.
type Tokenizer struct{}

func (Tokenizer) Encode(_ context.Context, text string) ([]int, error) {
	ids := []int{BOS}
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (Tokenizer) Decode(_ context.Context, ids []int, skipSpecial bool) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		switch id {
		case BOS:
			if !skipSpecial {
				sb.WriteString("<s>")
			}
		case EOS:
			if !skipSpecial {
				sb.WriteString("</s>")
			}
		default:
			sb.WriteRune(rune(id))
		}
	}
	return sb.String(), nil
}

func (Tokenizer) EOSTokenID() int { return EOS }

// Generator appends Reply and EOS to the input. Err, when set, is returned instead. Delay makes
// each call take that long unless the context ends first.
type Generator struct {
	Reply string
	Err   error
	Delay time.Duration

	mu     sync.Mutex
	calls  []llm.GenerateOptions
	inputs [][]int

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (g *Generator) Generate(ctx context.Context, input []int, opts llm.GenerateOptions) ([]int, error) {
	g.mu.Lock()
	g.calls = append(g.calls, opts)
	g.inputs = append(g.inputs, append([]int(nil), input...))
	g.mu.Unlock()

	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		m := g.maxInflight.Load()
		if n <= m || g.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.Err != nil {
		return nil, g.Err
	}

	out := append([]int{}, input...)
	for _, r := range g.Reply {
		out = append(out, int(r))
	}
	return append(out, EOS), nil
}

// Calls returns the options of every Generate call so far.
func (g *Generator) Calls() []llm.GenerateOptions {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.GenerateOptions(nil), g.calls...)
}

// Inputs returns the prompt ids of every Generate call so far.
func (g *Generator) Inputs() [][]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]int(nil), g.inputs...)
}

// MaxInflight is the highest number of simultaneous Generate calls observed.
func (g *Generator) MaxInflight() int {
	return int(g.maxInflight.Load())
}

// NewHandle returns a Handle backed by Tokenizer and gen.
func NewHandle(modelID string, gen *Generator) *llm.Handle {
	return &llm.Handle{
		ModelID:   modelID,
		Device:    "cpu",
		Precision: "float16",
		Tokenizer: Tokenizer{},
		Model:     gen,
	}
}

// Loader returns Handle or Err from Load and counts calls.
type Loader struct {
	Handle *llm.Handle
	Err    error
	calls  atomic.Int32
}

func (l *Loader) Load(context.Context, llm.LoadOptions) (*llm.Handle, error) {
	l.calls.Add(1)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Handle, nil
}

func (l *Loader) Calls() int { return int(l.calls.Load()) }

var (
	_ llm.Tokenizer = Tokenizer{}
	_ llm.Generator = (*Generator)(nil)
	_ llm.Loader    = (*Loader)(nil)
)
