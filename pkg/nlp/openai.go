package nlp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatibleClient implements LLMCompleter and VisionCompleter against
// any OpenAI-compatible chat-completions endpoint (OpenAI itself, or a
// self-hosted gateway exposing the same wire shape).
type OpenAICompatibleClient struct {
	client *openai.Client
	model  string
}

// NewOpenAICompatibleClient builds a client from an API key, model name and
// optional base URL. An empty baseURL talks to api.openai.com.
func NewOpenAICompatibleClient(apiKey, model, baseURL string) *OpenAICompatibleClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = normalizeBaseURL(baseURL)
	}
	return &OpenAICompatibleClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

func toOpenAIMessages(prompt, system string, history []Message) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		} else if m.Role == RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	return msgs
}

// Complete implements LLMCompleter.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(prompt, system, history),
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream implements LLMCompleter.
func (c *OpenAICompatibleClient) CompleteStream(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (<-chan string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(prompt, system, history),
		Temperature: opts.Temperature,
		Stream:      true,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CompleteWithImages implements VisionCompleter. With no images it reduces
// to a plain text completion.
func (c *OpenAICompatibleClient) CompleteWithImages(ctx context.Context, prompt string, images [][]byte, system string, opts CompleteOptions) (string, error) {
	if len(images) == 0 {
		return c.Complete(ctx, prompt, system, nil, opts)
	}

	var parts []openai.ChatMessagePart
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	msgs := []openai.ChatCompletionMessage{}
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Close implements LLMCompleter/VisionCompleter teardown; the underlying
// go-openai client owns no long-lived resources.
func (c *OpenAICompatibleClient) Close() error { return nil }

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if e, ok := err.(*openai.APIError); ok {
		apiErr = e
		return &openAIStatusError{code: apiErr.HTTPStatusCode, cause: err}
	}
	return fmt.Errorf("openai request failed: %w", err)
}

// openAIStatusError exposes HTTPStatusCode() so pkg/resilience can classify
// retryability without importing the openai package.
type openAIStatusError struct {
	code  int
	cause error
}

func (e *openAIStatusError) Error() string       { return e.cause.Error() }
func (e *openAIStatusError) Unwrap() error       { return e.cause }
func (e *openAIStatusError) HTTPStatusCode() int { return e.code }
