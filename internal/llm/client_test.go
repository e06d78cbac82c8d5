package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(apiURL string) *Config {
	return &Config{
		APIKey:      "sk-test",
		APIURL:      apiURL,
		Model:       "openai/gpt-4o-mini",
		MaxTokens:   1000,
		Temperature: 0.7,
		Timeout:     5,
		SiteURL:     "https://example.com",
		AppName:     "openlingo",
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(&Config{})
	require.Error(t, err)

	cfg := testConfig("https://api.example.com/v1")
	client, err := NewClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.APIKey = "" }},
		{"missing url", func(c *Config) { c.APIURL = "" }},
		{"missing model", func(c *Config) { c.Model = "" }},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://api.example.com/v1")
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetHeaders(t *testing.T) {
	headers := testConfig("https://api.example.com/v1").GetHeaders()
	assert.Equal(t, "Bearer sk-test", headers["Authorization"])
	assert.Equal(t, "application/json", headers["Content-Type"])
	assert.Equal(t, "https://example.com", headers["HTTP-Referer"])
	assert.Equal(t, "openlingo", headers["X-Title"])

	minimal := testConfig("https://api.example.com/v1")
	minimal.SiteURL = ""
	minimal.AppName = ""
	headers = minimal.GetHeaders()
	assert.NotContains(t, headers, "HTTP-Referer")
	assert.NotContains(t, headers, "X-Title")
}

func TestSimpleChat(t *testing.T) {
	var gotAuth, gotPath string
	var gotRequest ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		response := ChatResponse{
			Choices: []Choice{
				{Message: Message{Role: "assistant", Content: "Hola mundo."}},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	reply, err := client.SimpleChat(context.Background(), "Translate: Hello world.", "You are a translator.")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo.", reply)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "openai/gpt-4o-mini", gotRequest.Model)
	require.Len(t, gotRequest.Messages, 2)
	assert.Equal(t, "system", gotRequest.Messages[0].Role)
	assert.Equal(t, "You are a translator.", gotRequest.Messages[0].Content)
	assert.Equal(t, "user", gotRequest.Messages[1].Role)
}

func TestSimpleChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Error: &Error{Message: "rate limit exceeded", Type: "rate_limit"},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.SimpleChat(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestSimpleChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.SimpleChat(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChatCompletionOptionOverrides(t *testing.T) {
	var gotRequest ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	opts := NewChatCompletionOptions().WithMaxTokens(42)
	_, err = client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, opts)
	require.NoError(t, err)

	assert.Equal(t, 42, gotRequest.MaxTokens)
	// Unset option temperature falls back to the configured value.
	assert.Equal(t, 0.7, gotRequest.Temperature)
}
