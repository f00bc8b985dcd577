// Package llamacpp drives a llama.cpp llama-server instance over its native HTTP API.
// https://github.com/ggml-org/llama.cpp/tree/master/tools/server
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"harihar-backend/internal/llm"
)

// Client talks to one llama-server. It implements llm.Loader.
type Client struct {
	BaseURL string
	httpDo  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpDo: &http.Client{
			Timeout: timeout,
		},
	}
}

type props struct {
	BOSToken string `json:"bos_token"`
	EOSToken string `json:"eos_token"`
}

type tokenizeRequest struct {
	Content      string `json:"content"`
	AddSpecial   bool   `json:"add_special"`
	ParseSpecial bool   `json:"parse_special"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

type detokenizeRequest struct {
	Tokens []int `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

// completionRequest is the /completion body. Sampling fields are sent even when zero so the
// server never substitutes its own defaults.
type completionRequest struct {
	Prompt        []int   `json:"prompt"`
	NPredict      int     `json:"n_predict"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	TopK          int     `json:"top_k"`
	MinP          float64 `json:"min_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	ReturnTokens  bool    `json:"return_tokens"`
	Stream        bool    `json:"stream"`
	CachePrompt   bool    `json:"cache_prompt"`
}

type completionResponse struct {
	Content  string `json:"content"`
	Tokens   []int  `json:"tokens"`
	StopType string `json:"stop_type"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Load checks the server once, resolves its special tokens and returns a Handle. A server that
// is up but still loading weights yields llm.ErrNotReady.
func (c *Client) Load(ctx context.Context, opts llm.LoadOptions) (*llm.Handle, error) {
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusServiceUnavailable {
			return nil, fmt.Errorf("%w: %s", llm.ErrNotReady, se.Message)
		}
		return nil, fmt.Errorf("llama-server health check failed: %w", err)
	}

	var p props
	if err := c.do(ctx, http.MethodGet, "/props", nil, &p); err != nil {
		return nil, fmt.Errorf("failed to read llama-server props: %w", err)
	}
	if p.EOSToken == "" {
		return nil, errors.New("llama-server reported no eos token")
	}

	eos, err := c.specialID(ctx, p.EOSToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve eos token %q: %w", p.EOSToken, err)
	}
	special := map[int]struct{}{eos: {}}
	if p.BOSToken != "" {
		bos, err := c.specialID(ctx, p.BOSToken)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bos token %q: %w", p.BOSToken, err)
		}
		special[bos] = struct{}{}
	}

	tok := &tokenizer{c: c, eos: eos, special: special}
	return &llm.Handle{
		ModelID:   opts.ModelID,
		Device:    opts.Device,
		Precision: opts.Precision,
		Tokenizer: tok,
		Model:     &model{c: c, eos: eos},
	}, nil
}

func (c *Client) specialID(ctx context.Context, piece string) (int, error) {
	var out tokenizeResponse
	req := tokenizeRequest{Content: piece, AddSpecial: false, ParseSpecial: true}
	if err := c.do(ctx, http.MethodPost, "/tokenize", req, &out); err != nil {
		return 0, err
	}
	if len(out.Tokens) != 1 {
		return 0, fmt.Errorf("expected a single token, got %d", len(out.Tokens))
	}
	return out.Tokens[0], nil
}

type tokenizer struct {
	c       *Client
	eos     int
	special map[int]struct{}
}

func (t *tokenizer) Encode(ctx context.Context, text string) ([]int, error) {
	var out tokenizeResponse
	req := tokenizeRequest{Content: text, AddSpecial: true, ParseSpecial: false}
	if err := t.c.do(ctx, http.MethodPost, "/tokenize", req, &out); err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return out.Tokens, nil
}

func (t *tokenizer) Decode(ctx context.Context, ids []int, skipSpecial bool) (string, error) {
	if skipSpecial {
		kept := make([]int, 0, len(ids))
		for _, id := range ids {
			if _, ok := t.special[id]; !ok {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	if len(ids) == 0 {
		return "", nil
	}

	var out detokenizeResponse
	if err := t.c.do(ctx, http.MethodPost, "/detokenize", detokenizeRequest{Tokens: ids}, &out); err != nil {
		return "", fmt.Errorf("detokenize: %w", err)
	}
	return out.Content, nil
}

func (t *tokenizer) EOSTokenID() int { return t.eos }

type model struct {
	c   *Client
	eos int
}

// Generate runs one non-streaming completion. llama-server evaluates a single unpadded sequence,
// so opts.PadTokenID has no effect here.
func (m *model) Generate(ctx context.Context, input []int, opts llm.GenerateOptions) ([]int, error) {
	temperature := opts.Temperature
	if !opts.DoSample {
		// llama-server samples greedily at temperature <= 0.
		temperature = 0
	}
	req := completionRequest{
		Prompt:        input,
		NPredict:      opts.MaxNewTokens,
		Temperature:   temperature,
		TopP:          opts.TopP,
		TopK:          0,
		MinP:          0,
		RepeatPenalty: 1,
		ReturnTokens:  true,
	}

	var out completionResponse
	if err := m.c.do(ctx, http.MethodPost, "/completion", req, &out); err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	generated := out.Tokens
	if len(generated) == 0 && out.Content != "" {
		// Older servers ignore return_tokens.
		var tr tokenizeResponse
		treq := tokenizeRequest{Content: out.Content, AddSpecial: false, ParseSpecial: false}
		if err := m.c.do(ctx, http.MethodPost, "/tokenize", treq, &tr); err != nil {
			return nil, fmt.Errorf("tokenize completion: %w", err)
		}
		generated = tr.Tokens
	}

	seq := make([]int, 0, len(input)+len(generated)+1)
	seq = append(seq, input...)
	seq = append(seq, generated...)
	if out.StopType == "eos" {
		seq = append(seq, m.eos)
	}
	return seq, nil
}

// StatusError is a non-2xx answer from llama-server.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llama-server %s: http %d: %s", e.Path, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpDo.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		return &StatusError{Path: path, Code: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var _ llm.Loader = (*Client)(nil)
