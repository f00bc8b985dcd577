package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"harihar-backend/internal/config"
	"harihar-backend/internal/llm"
	"harihar-backend/internal/logger"
	"harihar-backend/internal/models"
)

// ErrModelNotLoaded is returned by Chat when no model handle was acquired at startup.
var ErrModelNotLoaded = errors.New("model not loaded")

type ChatOptions struct {
	// ModelName is reported in every ChatResponse.
	ModelName string
	// Concurrency bounds simultaneous generation calls. Values below 1 mean 1.
	Concurrency int
	// Timeout bounds one generation call; zero means no limit.
	Timeout time.Duration
	// Extraction is config.ReplyExtractionMarker or config.ReplyExtractionTokens.
	Extraction string
}

type ChatService struct {
	handle *llm.Handle
	opts   ChatOptions
	gate   *semaphore.Weighted
}

// NewChatService wraps handle, which may be nil when loading failed. The service then reports
// the model as absent and rejects every chat.
func NewChatService(handle *llm.Handle, opts ChatOptions) *ChatService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Extraction == "" {
		opts.Extraction = config.ReplyExtractionMarker
	}
	return &ChatService{
		handle: handle,
		opts:   opts,
		gate:   semaphore.NewWeighted(int64(opts.Concurrency)),
	}
}

func (s *ChatService) ModelLoaded() bool {
	return s.handle != nil && s.handle.Tokenizer != nil && s.handle.Model != nil
}

func (s *ChatService) ModelName() string {
	return s.opts.ModelName
}

// acquire blocks until a generation slot is free or ctx is done.
func (s *ChatService) acquire(ctx context.Context) error {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for generation slot: %w", err)
	}
	return nil
}

func (s *ChatService) release() {
	s.gate.Release(1)
}

// Chat builds the prompt, runs generation and extracts the assistant reply.
func (s *ChatService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if !s.ModelLoaded() {
		return nil, ErrModelNotLoaded
	}

	prompt := BuildPrompt(req.History, req.Message)

	tok := s.handle.Tokenizer
	input, err := tok.Encode(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}

	output, err := s.generate(ctx, input, llm.GenerateOptions{
		MaxNewTokens: req.MaxNewTokens,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		DoSample:     true,
		PadTokenID:   tok.EOSTokenID(),
	})
	if err != nil {
		return nil, err
	}

	var reply string
	switch s.opts.Extraction {
	case config.ReplyExtractionTokens:
		var continuation []int
		if len(output) > len(input) {
			continuation = output[len(input):]
		}
		text, err := tok.Decode(ctx, continuation, true)
		if err != nil {
			return nil, fmt.Errorf("decode output: %w", err)
		}
		reply = strings.TrimSpace(text)
	default:
		decoded, err := tok.Decode(ctx, output, true)
		if err != nil {
			return nil, fmt.Errorf("decode output: %w", err)
		}
		reply = ExtractReply(decoded, prompt)
	}

	return &models.ChatResponse{Reply: reply, Model: s.opts.ModelName}, nil
}

func (s *ChatService) generate(ctx context.Context, input []int, opts llm.GenerateOptions) ([]int, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := s.handle.Model.Generate(ctx, input, opts)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	logger.Log.Debug("generation finished",
		"prompt_tokens", len(input),
		"new_tokens", len(output)-len(input),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return output, nil
}
