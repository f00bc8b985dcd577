package services

import (
	"context"
	"time"

	"harihar-backend/internal/llm"
	"harihar-backend/internal/logger"
)

// LoadModel makes the single startup attempt to acquire a model handle. On failure it logs the
// error and returns nil; the caller keeps serving with the model absent and never retries.
func LoadModel(ctx context.Context, loader llm.Loader, opts llm.LoadOptions, timeout time.Duration) *llm.Handle {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Log.Info("Loading model", "model", opts.ModelID, "precision", opts.Precision, "device", opts.Device)

	handle, err := loader.Load(ctx, opts)
	if err != nil {
		logger.Log.Error("✗ Model load failed", "model", opts.ModelID, "error", err)
		return nil
	}

	logger.Log.Info("✓ Model loaded", "model", handle.ModelID, "device", handle.Device)
	return handle
}
