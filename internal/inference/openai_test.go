package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/plantops/watering-advisor/internal/faults"
	"github.com/plantops/watering-advisor/internal/prompt"
)

func testPayload() prompt.Payload {
	return prompt.Payload{
		System:   "decide",
		UserText: "FACTS: {}",
		ImageURL: "data:image/jpeg;base64,abc123",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	}, zap.NewNop())
}

func reply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestInfer_ValidReply(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(`{"water": true, "reason": "dry topsoil"}`)(w, r)
	})

	res, err := c.Infer(context.Background(), testPayload())
	require.NoError(t, err)
	assert.True(t, res.Water)
	assert.Equal(t, "dry topsoil", res.Reason)

	// Deterministic, bounded, JSON-only request.
	assert.Equal(t, 0.0, got.Temperature)
	assert.Equal(t, maxAnswerTokens, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Len(t, got.Messages, 2)
}

func TestInfer_NonJSONReply(t *testing.T) {
	c := newTestClient(t, reply("sure, water it!"))
	_, err := c.Infer(context.Background(), testPayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInference))
}

func TestInfer_MissingVerdict(t *testing.T) {
	c := newTestClient(t, reply(`{"reason": "because"}`))
	_, err := c.Infer(context.Background(), testPayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInference))
}

func TestInfer_MissingJustificationNotCoerced(t *testing.T) {
	for _, content := range []string{
		`{"water": false}`,
		`{"water": false, "reason": ""}`,
		`{"water": false, "reason": "   "}`,
	} {
		c := newTestClient(t, reply(content))
		_, err := c.Infer(context.Background(), testPayload())
		require.Error(t, err, content)
		assert.True(t, errors.Is(err, faults.ErrInference), content)
	}
}

func TestInfer_HTTPErrorIsInferenceFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	_, err := c.Infer(context.Background(), testPayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInference))
}

func TestInfer_NoRetryOnFailure(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.Infer(context.Background(), testPayload())
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a billed call must never be retried")
}

func TestInfer_MissingKeyIsConfigurationError(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{Model: "gpt-4o-mini"}, zap.NewNop())
	_, err := c.Infer(context.Background(), testPayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrConfiguration))
}

func TestAuditPrompt_RedactsImageByDefault(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := httptest.NewServer(reply(`{"water": true, "reason": "ok"}`))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	}, zap.New(core))

	_, err := c.Infer(context.Background(), testPayload())
	require.NoError(t, err)

	entries := logs.FilterMessage("prompt").All()
	require.Len(t, entries, 1)
	logged := entries[0].ContextMap()["messages"].(string)
	assert.Contains(t, logged, redactedImageMarker)
	assert.NotContains(t, logged, "abc123")
}

func TestAuditPrompt_IncludesImageWhenConfigured(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := httptest.NewServer(reply(`{"water": true, "reason": "ok"}`))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{
		APIKey:              "k",
		BaseURL:             srv.URL,
		Model:               "gpt-4o-mini",
		IncludeImageInAudit: true,
	}, zap.New(core))

	_, err := c.Infer(context.Background(), testPayload())
	require.NoError(t, err)

	entries := logs.FilterMessage("prompt").All()
	require.Len(t, entries, 1)
	logged := entries[0].ContextMap()["messages"].(string)
	assert.Contains(t, logged, "abc123")
}

func TestParseDecision(t *testing.T) {
	res, err := parseDecision(`  {"water": false, "reason": "watered yesterday"} `)
	require.NoError(t, err)
	assert.False(t, res.Water)

	_, err = parseDecision(`[]`)
	assert.Error(t, err)
}
