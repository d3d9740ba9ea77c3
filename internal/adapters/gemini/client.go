// Package gemini implements the vision-model port on the Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dira-ar/dira/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

// Client wraps the Gemini SDK behind ports.VisionModel. Reasoning tokens are
// base64-encoded thought signatures: opaque to everything above this package.
type Client struct {
	client        *genai.Client
	model         string
	thoroughModel string
	timeout       time.Duration
}

// New creates a Gemini client. timeoutSecs caps every model invocation;
// callers still apply their own tighter per-operation deadlines.
func New(ctx context.Context, apiKey, model, thoroughModel string, timeoutSecs int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if thoroughModel == "" {
		thoroughModel = model
	}
	timeout := defaultTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}
	return &Client{client: client, model: model, thoroughModel: thoroughModel, timeout: timeout}, nil
}

// AnalyzeJSON sends an optional image plus a prompt and requests a JSON
// response. The raw model text is returned unparsed; validation is the
// caller's job.
func (c *Client) AnalyzeJSON(ctx context.Context, image []byte, prompt, reasoningToken string, opts ports.VisionOptions) (*ports.VisionResult, error) {
	parts := make([]*genai.Part, 0, 2)
	if image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image},
		})
	}

	promptPart := &genai.Part{Text: prompt}
	if reasoningToken != "" {
		sig, err := base64.StdEncoding.DecodeString(reasoningToken)
		if err != nil {
			return nil, fmt.Errorf("malformed reasoning token: %w", err)
		}
		promptPart.ThoughtSignature = sig
	}
	parts = append(parts, promptPart)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.3),
	}
	if opts.Temperature != 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}

	resp, err := c.generate(ctx, parts, config, opts)
	if err != nil {
		return nil, err
	}

	return &ports.VisionResult{
		Raw:            []byte(cleanJSON(resp.Text())),
		ReasoningToken: extractToken(resp),
	}, nil
}

// GenerateText sends a text-only prompt and returns the model's plain text.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts ports.VisionOptions) (string, error) {
	config := &genai.GenerateContentConfig{}
	if opts.Temperature != 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}

	resp, err := c.generate(ctx, []*genai.Part{{Text: prompt}}, config, opts)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *Client) generate(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig, opts ports.VisionOptions) (*genai.GenerateContentResponse, error) {
	model := c.model
	if opts.Thorough {
		model = c.thoroughModel
	}
	if opts.Model != "" {
		model = opts.Model
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate (%s): %w", model, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini generate (%s): empty response", model)
	}
	return resp, nil
}

// callContext bounds a model invocation by the configured timeout.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// extractToken pulls the thought signature, if any, from the first candidate.
func extractToken(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if len(part.ThoughtSignature) > 0 {
			return base64.StdEncoding.EncodeToString(part.ThoughtSignature)
		}
	}
	return ""
}

// cleanJSON strips the markdown fences some models wrap JSON in despite the
// response MIME type.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
