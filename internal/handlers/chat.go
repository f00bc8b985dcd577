package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"harihar-backend/internal/logger"
	"harihar-backend/internal/models"
	"harihar-backend/internal/services"
)

type chatService interface {
	ModelLoaded() bool
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

type ChatHandler struct {
	chatService chatService
}

func NewChatHandler(chatService chatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

const modelNotLoadedMessage = "Model not loaded. Check server logs."

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	// Checked before the body so every request gets 503 while the model is absent.
	if !h.chatService.ModelLoaded() {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("MODEL_NOT_LOADED", modelNotLoadedMessage, r))
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, models.ErrMissingMessage) {
			msg = "Message is required"
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("VALIDATION_ERROR", msg, r))
		return
	}

	resp, err := h.chatService.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrModelNotLoaded) {
			writeJSON(w, http.StatusServiceUnavailable, errorResp("MODEL_NOT_LOADED", modelNotLoadedMessage, r))
			return
		}
		logger.Log.Error("chat generation failed", "request_id", r.Header.Get("X-Request-ID"), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Internal Server Error", r))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
