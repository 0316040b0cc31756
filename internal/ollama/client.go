// Package ollama talks to a local Ollama server: streaming chat through its
// OpenAI-compatible endpoint and the native installed-model listing.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"ollamatui/internal/errkind"
	"ollamatui/internal/models"
)

const (
	DefaultHost = "http://localhost:11434"

	listTimeout = 15 * time.Second
)

type tagsResponse struct {
	Models []tagModel `json:"models"`
}

type tagModel struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Client is safe for concurrent use; every call carries its own context.
type Client struct {
	api    openai.Client
	host   string
	logger *slog.Logger
}

// NewClient builds a client for the server at host. Extra options are applied
// after the defaults, which lets tests swap the HTTP client.
func NewClient(host string, logger *slog.Logger, opts ...option.RequestOption) *Client {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = DefaultHost
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	base := []option.RequestOption{
		option.WithBaseURL(host + "/v1/"),
		// Ollama ignores the key but the SDK insists on sending one.
		option.WithAPIKey("ollama"),
		option.WithMaxRetries(0),
	}
	return &Client{
		api:    openai.NewClient(append(base, opts...)...),
		host:   host,
		logger: logger,
	}
}

func (c *Client) Host() string { return c.host }

// ListModels returns the installed models in server order.
func (c *Client) ListModels(ctx context.Context) ([]models.ModelEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var res tagsResponse
	err := c.api.Get(ctx, "api/tags", nil, &res, option.WithBaseURL(c.host+"/"))
	if err != nil {
		return nil, wrapAPIError("list models", err)
	}

	entries := make([]models.ModelEntry, 0, len(res.Models))
	for _, m := range res.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name == "" {
			continue
		}
		entries = append(entries, models.ModelEntry{
			Name:       name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}
	c.logger.Debug("listed models", "count", len(entries))
	return entries, nil
}

// StreamChat sends the transcript to model and calls onToken for every
// non-empty content delta, in the order the server produced them. It returns
// nil once the stream ends normally. A non-nil error from onToken aborts the
// stream and is returned.
func (c *Client) StreamChat(ctx context.Context, model string, messages []models.ChatMessage, onToken func(string) error) error {
	if model == "" {
		return errkind.New(errkind.ServerRejected, "chat", errors.New("no model selected"))
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toParams(messages),
	}

	stream := c.api.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	chunks := 0
	for stream.Next() {
		chunk := stream.Current()
		chunks++
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onToken(delta); err != nil {
			return errkind.Wrap("chat", err)
		}
	}
	if err := stream.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errkind.New(errkind.Cancelled, "chat", ctxErr)
		}
		return wrapAPIError("chat", err)
	}
	c.logger.Debug("chat stream finished", "model", model, "chunks", chunks)
	return nil
}

func toParams(messages []models.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			params = append(params, openai.UserMessage(msg.Content))
		case models.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		}
	}
	return params
}

func wrapAPIError(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return errkind.New(errkind.ServerRejected, op, fmt.Errorf("status %d: %w", apiErr.StatusCode, err))
	}
	return errkind.Wrap(op, err)
}
