package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harihar-backend/internal/handlers"
	"harihar-backend/internal/llm/llmtest"
	"harihar-backend/internal/models"
	"harihar-backend/internal/services"
)

const testModel = "bharatgenai/Param-1-2.9B-Instruct"

func newServer(t *testing.T, loaded bool) *httptest.Server {
	t.Helper()
	var svc *services.ChatService
	if loaded {
		gen := &llmtest.Generator{Reply: " नमस्ते, मैं हरिहर हूँ।"}
		svc = services.NewChatService(llmtest.NewHandle(testModel, gen), services.ChatOptions{ModelName: testModel})
	} else {
		svc = services.NewChatService(nil, services.ChatOptions{ModelName: testModel})
	}

	srv := httptest.NewServer(New(handlers.NewHealthHandler(svc), handlers.NewChatHandler(svc)))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes_Health(t *testing.T) {
	for _, loaded := range []bool{true, false} {
		srv := newServer(t, loaded)

		for path, status := range map[string]string{"/": "HariHar is running!", "/health": "ok"} {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)

			var body models.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.Equal(t, status, body.Status, path)
			assert.Equal(t, loaded, body.ModelLoaded, path)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), path)
		}
	}
}

func TestRoutes_Chat(t *testing.T) {
	srv := newServer(t, true)

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", bytes.NewBufferString(`{"message":"नमस्ते"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body models.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "नमस्ते, मैं हरिहर हूँ।", body.Reply)
	assert.Equal(t, testModel, body.Model)
}

func TestRoutes_ChatModelAbsent(t *testing.T) {
	srv := newServer(t, false)

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", bytes.NewBufferString(`{"message":"नमस्ते"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Detail, "Model not loaded")
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body.Error.RequestID)
}

func TestRoutes_ChatWrongMethod(t *testing.T) {
	srv := newServer(t, true)

	resp, err := http.Get(srv.URL + "/api/chat")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	srv := newServer(t, true)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
