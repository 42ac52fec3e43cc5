package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voice-butler/internal/domain"
	"voice-butler/internal/infra"
)

// ChatClient talks to any OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	client oai.Client
	model  string
}

func NewChatClient(apiKey, model, baseURL string, httpClient *http.Client) *ChatClient {
	if model == "" {
		model = string(oai.ChatModelGPT4oMini)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &ChatClient{
		client: oai.NewClient(opts...),
		model:  model,
	}
}

func (c *ChatClient) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Model: oai.ChatModel(c.model),
	})
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return "", infra.ChatStatusError("openai", apiErr.StatusCode, []byte(apiErr.RawJSON()))
		}
		return "", infra.ChatTransportError("openai", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai: %w", domain.ErrServiceUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}
