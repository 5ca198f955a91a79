package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/watering-advisor/internal/faults"
	"github.com/plantops/watering-advisor/internal/model"
	"github.com/plantops/watering-advisor/internal/prompt"
)

const (
	redactedImageMarker = "<image-data-url-redacted>"

	// The reply is a two-field JSON object; a small budget keeps the
	// justification short and the bill bounded.
	maxAnswerTokens = 400
)

// OpenAIConfig configures the chat-completions client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// IncludeImageInAudit controls whether the base64 image payload goes
	// into the audit log along with the rest of the prompt.
	IncludeImageInAudit bool
}

// OpenAIClient implements Judge against the OpenAI chat-completions API.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	audit        *zap.Logger
	includeImage bool
}

// NewOpenAIClient builds a client. audit receives the exact prompt of every
// call before it is sent; pass zap.NewNop() to disable.
func NewOpenAIClient(cfg OpenAIConfig, audit *zap.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if audit == nil {
		audit = zap.NewNop()
	}
	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		audit:        audit,
		includeImage: cfg.IncludeImageInAudit,
	}
}

// Infer sends the payload and validates the reply into a DecisionResponse.
// There is deliberately no retry: a misfired retry would double-invoke a
// billed service, which is worse than failing the run.
func (c *OpenAIClient) Infer(ctx context.Context, p prompt.Payload) (model.DecisionResponse, error) {
	if c.apiKey == "" {
		return model.DecisionResponse{}, faults.Configuration("inference API key not configured")
	}

	// Apply the client timeout when the caller did not bound the context.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	messages := buildMessages(p)
	c.auditPrompt(messages)

	reqBody := chatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    0.0,
		MaxTokens:      maxAnswerTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return model.DecisionResponse{}, faults.Inference("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return model.DecisionResponse{}, faults.Inference("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.DecisionResponse{}, faults.Inference("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.DecisionResponse{}, faults.Inference("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.DecisionResponse{}, faults.Inference("API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return model.DecisionResponse{}, faults.Inference("parse response envelope: %v", err)
	}
	if out.Error != nil {
		return model.DecisionResponse{}, faults.Inference("API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return model.DecisionResponse{}, faults.Inference("no completion returned")
	}

	decision, err := parseDecision(out.Choices[0].Message.Content)
	if err != nil {
		return model.DecisionResponse{}, err
	}

	c.audit.Info("inference_response",
		zap.Bool("water", decision.Water),
		zap.String("reason", decision.Reason),
		zap.Duration("took", time.Since(start)))
	return decision, nil
}

// parseDecision validates the raw reply against the response schema. A
// reply that is not JSON, or JSON missing the verdict or the justification,
// is a hard failure, never coerced.
func parseDecision(raw string) (model.DecisionResponse, error) {
	var probe struct {
		Water  *bool   `json:"water"`
		Reason *string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &probe); err != nil {
		return model.DecisionResponse{}, faults.Inference("reply is not valid JSON: %v", err)
	}
	if probe.Water == nil {
		return model.DecisionResponse{}, faults.Inference("reply is missing the water verdict")
	}
	if probe.Reason == nil || strings.TrimSpace(*probe.Reason) == "" {
		return model.DecisionResponse{}, faults.Inference("reply is missing the justification")
	}
	return model.DecisionResponse{Water: *probe.Water, Reason: *probe.Reason}, nil
}

func buildMessages(p prompt.Payload) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: p.System},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: p.UserText},
			{Type: "image_url", ImageURL: &imageRef{URL: p.ImageURL}},
		}},
	}
}

// auditPrompt records the exact outgoing prompt. The image data URL is
// replaced with a marker unless configured otherwise.
func (c *OpenAIClient) auditPrompt(messages []chatMessage) {
	scrubbed := make([]chatMessage, len(messages))
	for i, m := range messages {
		parts, ok := m.Content.([]contentPart)
		if !ok || c.includeImage {
			scrubbed[i] = m
			continue
		}
		cp := make([]contentPart, len(parts))
		for j, part := range parts {
			if part.ImageURL != nil {
				part.ImageURL = &imageRef{URL: redactedImageMarker}
			}
			cp[j] = part
		}
		scrubbed[i] = chatMessage{Role: m.Role, Content: cp}
	}
	b, err := json.Marshal(scrubbed)
	if err != nil {
		c.audit.Warn("prompt_serialize_failed", zap.Error(err))
		return
	}
	c.audit.Info("prompt", zap.String("model", c.model), zap.ByteString("messages", b))
}
