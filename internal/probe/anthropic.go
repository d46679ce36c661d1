package probe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
)

// DefaultModel is the model named in probe requests when none is configured.
const DefaultModel = "claude-3-5-haiku-latest"

// AnthropicClient pings an endpoint's Messages API with a one-token request.
// All endpoints share one HTTP client so the warm-up call leaves a pooled
// connection behind for the timed call.
type AnthropicClient struct {
	httpClient *http.Client
	model      string
	logger     *slog.Logger
}

func NewAnthropicClient(httpClient *http.Client, model string, logger *slog.Logger) *AnthropicClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicClient{
		httpClient: httpClient,
		model:      model,
		logger:     logger,
	}
}

// Ping sends a minimal message request. Any HTTP response counts as
// reachable, whatever its status or body; only a round trip that never
// produced a response is an error.
func (c *AnthropicClient) Ping(ctx context.Context, ep endpoint.Endpoint) error {
	var answered atomic.Bool

	client := anthropic.NewClient(
		option.WithBaseURL(ep.BaseURL),
		option.WithAPIKey(ep.Secret),
		option.WithHeader("Authorization", "Bearer "+ep.Secret),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
		option.WithMiddleware(func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
			resp, err := next(req)
			if resp != nil {
				answered.Store(true)
			}
			return resp, err
		}),
	)

	_, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		c.logger.Debug("endpoint answered with an API error",
			slog.String("endpoint", ep.Name),
			slog.Int("status", apiErr.StatusCode))
		return nil
	}

	if answered.Load() {
		c.logger.Debug("endpoint answered with an unexpected body",
			slog.String("endpoint", ep.Name),
			slog.Any("err", err))
		return nil
	}

	return err
}
