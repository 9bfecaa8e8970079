package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"shortsmith/config"
	"shortsmith/keypool"
	"shortsmith/logger"
	"shortsmith/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenRouter sends the whole chunk inline as a base64 data URI in a single
// chat completion and pulls the moments out of the answer text.
type OpenRouter struct {
	model      string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

type OpenRouterOption func(*OpenRouter)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) OpenRouterOption {
	return func(o *OpenRouter) { o.baseURL = u }
}

// WithHTTPClient swaps the transport.
func WithHTTPClient(c *http.Client) OpenRouterOption {
	return func(o *OpenRouter) { o.httpClient = c }
}

func NewOpenRouter(model string, log *logger.Logger, opts ...OpenRouterOption) *OpenRouter {
	o := &OpenRouter{
		model:   model,
		baseURL: config.OpenRouterBaseURL,
		log:     log.Named("openrouter"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenRouter) Name() string { return config.ProviderOpenRouter }

func (o *OpenRouter) Close() error { return nil }

func (o *OpenRouter) ProcessChunk(ctx context.Context, cred keypool.Credential, fileRef string, offset time.Duration, status StatusFunc) ([]types.Moment, error) {
	notify := notifier(status)

	notify("Reading and encoding video for OpenRouter...")
	data, err := os.ReadFile(fileRef)
	if err != nil {
		return nil, fmt.Errorf("reading chunk: %w", err)
	}
	dataURI := "data:" + config.ChunkMIMEType + ";base64," + base64.StdEncoding.EncodeToString(data)

	client := openai.NewClient(o.clientOptions(cred)...)

	content := []map[string]any{
		{"type": "text", "text": InlinePrompt + "\n\n" + ChunkInstruction},
		{"type": "video_url", "video_url": map[string]string{"url": dataURI}},
	}

	notify(fmt.Sprintf("Sending to OpenRouter with %s...", cred.Name))
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage("")},
		Temperature: openai.Float(config.AnalysisTemperature),
	}, option.WithJSONSet("messages.0.content", content))
	if err != nil {
		return nil, classify(o.Name(), cred.Name, fmt.Errorf("chat completion: %w", err), openRouterQuota)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openrouter returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	moments, err := ParseMoments(text)
	if err != nil {
		o.log.Debugf("raw content: %s", text)
		return nil, fmt.Errorf("parsing openrouter moments: %w", err)
	}
	rebased, dropped := types.RebaseAll(moments, offset)
	if dropped > 0 {
		o.log.Warnf("dropped %d moments with unreadable timestamps", dropped)
	}
	return rebased, nil
}

func (o *OpenRouter) clientOptions(cred keypool.Credential) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(cred.Secret),
		option.WithBaseURL(o.baseURL),
		option.WithHeader("HTTP-Referer", config.OpenRouterReferer),
		option.WithHeader("X-Title", config.OpenRouterTitle),
		option.WithMaxRetries(0),
	}
	if o.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(o.httpClient))
	}
	return opts
}

// openRouterQuota treats 429 (rate limit) and 402 (credits spent) as quota.
func openRouterQuota(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusPaymentRequired
	}
	return false
}
