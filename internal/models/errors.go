package models

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// ErrorResponse is the body of every non-2xx reply. Detail repeats Error.Message for clients
// that read a top-level "detail" string.
type ErrorResponse struct {
	Error  APIError `json:"error"`
	Detail string   `json:"detail"`
}
