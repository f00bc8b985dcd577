package models

import (
	"encoding/json"
	"errors"
)

// Sampling defaults applied when a request omits a field or sends null.
const (
	DefaultMaxNewTokens = 256
	DefaultTemperature  = 0.7
	DefaultTopP         = 0.9
)

var ErrMissingMessage = errors.New("message is required")

// ChatRequest is the payload sent to the chat endpoint. History entries are prior turns already
// rendered as text (e.g. "User: ..." / "HariHar: ...").
type ChatRequest struct {
	Message      string   `json:"message"`
	History      []string `json:"history"`
	MaxNewTokens int      `json:"max_new_tokens"`
	Temperature  float64  `json:"temperature"`
	TopP         float64  `json:"top_p"`
}

// NewChatRequest returns a request for message with default sampling parameters.
func NewChatRequest(message string) ChatRequest {
	return ChatRequest{
		Message:      message,
		MaxNewTokens: DefaultMaxNewTokens,
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
	}
}

// UnmarshalJSON fills defaults for absent or null sampling fields and rejects a missing message.
// Values that are present are kept as sent; they are not range-checked.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias ChatRequest
	*r = NewChatRequest("")
	aux := struct {
		*alias
		Message *string `json:"message"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Message == nil {
		return ErrMissingMessage
	}
	r.Message = *aux.Message
	return nil
}

// ChatResponse is the reply from the model.
type ChatResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// HealthResponse reports liveness and whether the model handle was acquired at startup.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}
