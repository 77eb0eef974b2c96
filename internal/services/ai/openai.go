package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/smart-calendar/internal/logger"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
	// DefaultMaxHistory caps how many earlier messages are sent with a prompt
	DefaultMaxHistory = 20
)

// OpenAIGenerator talks to an OpenAI-compatible chat completion API and asks
// for replies in the sectioned format the extractor reads
type OpenAIGenerator struct {
	client     openai.Client
	model      string
	maxHistory int
	now        func() time.Time
	logger     *zap.Logger
	debugMode  bool
}

// OpenAIConfig configures NewOpenAIGenerator. Zero values select defaults.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	MaxHistory int
	HTTPClient *http.Client
	Now        func() time.Time
	Logger     *zap.Logger
	DebugMode  bool
}

// NewOpenAIGenerator creates a generator
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	)

	return &OpenAIGenerator{
		client:     client,
		model:      cfg.Model,
		maxHistory: cfg.MaxHistory,
		now:        cfg.Now,
		logger:     logger.OrNop(cfg.Logger),
		debugMode:  cfg.DebugMode,
	}
}

// Generate sends the system instructions, the recent history and the prompt
func (p *OpenAIGenerator) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	if len(history) > p.maxHistory {
		history = history[len(history)-p.maxHistory:]
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(BuildSystemPrompt(p.now())))
	for _, msg := range history {
		switch msg.Role {
		case models.ChatRoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.Int("message_count", len(messages)),
			zap.String("prompt_preview", logger.Preview(prompt)),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	startTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		p.logger.Warn("llm_api_error",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.String("error", logger.SanitizeError(err)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to generate: %w", apiErr)
		}
		return "", fmt.Errorf("failed to generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}

	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logger.SanitizeDebugContent(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

// BuildSystemPrompt describes the reply format: a response section, calendar
// tags counted in days from today, and an optional plan
func BuildSystemPrompt(now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a personal calendar assistant. ")
	fmt.Fprintf(&b, "Today is %s, %s.\n\n", now.Weekday(), now.Format(models.DateLayout))
	b.WriteString("Answer in sections:\n")
	b.WriteString("**Part 1: Response**\nA short, friendly answer for the user.\n")
	b.WriteString("**Part 3: Categories**\nOne line per event the user wants on their calendar, written as\n")
	b.WriteString("Calendar: N days from today Title\n")
	b.WriteString("where N is a whole number from 0 (today) to 365. Write no Calendar lines when the user only asks a question.\n\n")
	b.WriteString("When the user asks for a multi-day plan, add\n")
	b.WriteString("Plan: [Plan title]\n")
	b.WriteString("Step 1: [Time: ...] | [Title: ...] | [Description: ...] | [Completion: ...] | [Day: N days from today]\n")
	b.WriteString("with one Step line per step, in order.\n")
	return b.String()
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry, l *zap.Logger) {
	registry.Register("openai", func(config map[string]string) (Generator, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:    apiKey,
			BaseURL:   config["base_url"],
			Model:     config["model"],
			Logger:    l,
			DebugMode: config["debug"] == "true",
		}), nil
	})
}
