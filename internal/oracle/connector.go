package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/cohere"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/repairloop/internal/logging"
	"github.com/repairloop/internal/prompts"
	"github.com/repairloop/internal/redact"
	"github.com/repairloop/internal/retry"
)

// Provider represents an AI provider type
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderCohere Provider = "cohere"
	ProviderOllama Provider = "ollama"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// DefaultModels holds the model used when none is configured.
var DefaultModels = map[Provider]string{
	ProviderGroq:   "llama-3.1-8b-instant",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.5-flash",
	ProviderClaude: "claude-3-5-haiku-latest",
	ProviderCohere: "command-r",
	ProviderOllama: "llama3",
}

// ModelConfig contains the configuration for a specific model
type ModelConfig struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Options configures a Connector.
type Options struct {
	Provider          Provider
	APIKey            string
	BaseURL           string
	ModelConfig       ModelConfig
	MaxRetries        int
	RequestsPerMinute int
	Prompts           prompts.Set
	// Redactor masks secrets in code and diagnostics before sending; nil disables it.
	Redactor *redact.Redactor
	Logger   *logging.SessionLogger
}

// Connector is an Oracle backed by a langchaingo model.
type Connector struct {
	provider Provider
	llm      llms.Model
	options  Options
	limiter  *rate.Limiter
	retry    retry.RetryConfig
}

// NewConnector creates a new connector for the specified provider
func NewConnector(ctx context.Context, options Options) (*Connector, error) {
	if options.ModelConfig.Model == "" {
		options.ModelConfig.Model = DefaultModels[options.Provider]
	}

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.ModelConfig.Model).
		Float64("temperature", options.ModelConfig.Temperature).
		Msg("Creating new connector")

	var model llms.Model
	var err error

	switch options.Provider {
	case ProviderGroq:
		if options.BaseURL == "" {
			options.BaseURL = GroqBaseURL
		}
		model, err = createOpenAIModel(options)
	case ProviderOpenAI:
		model, err = createOpenAIModel(options)
	case ProviderGemini:
		model, err = createGeminiModel(ctx, options)
	case ProviderClaude:
		model, err = createAnthropicModel(options)
	case ProviderCohere:
		model, err = createCohereModel(options)
	case ProviderOllama:
		model, err = createOllamaModel(options)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}

	return newConnector(model, options), nil
}

func newConnector(model llms.Model, options Options) *Connector {
	if options.Prompts.System == "" && options.Prompts.User == "" {
		options.Prompts = prompts.Defaults()
	}

	c := &Connector{
		provider: options.Provider,
		llm:      model,
		options:  options,
		retry:    retry.OracleRetryConfig(options.MaxRetries),
	}
	if options.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(options.RequestsPerMinute)), 1)
	}
	return c
}

func createOpenAIModel(options Options) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(options.ModelConfig.Model),
		openai.WithToken(options.APIKey),
	}

	if options.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(options.BaseURL))
	}

	return openai.New(opts...)
}

func createGeminiModel(ctx context.Context, options Options) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(options.APIKey),
		googleai.WithDefaultModel(options.ModelConfig.Model),
	}

	model, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini model: %w", err)
	}
	return model, nil
}

func createAnthropicModel(options Options) (llms.Model, error) {
	return anthropic.New(
		anthropic.WithToken(options.APIKey),
		anthropic.WithModel(options.ModelConfig.Model),
	)
}

func createCohereModel(options Options) (llms.Model, error) {
	opts := []cohere.Option{
		cohere.WithToken(options.APIKey),
		cohere.WithModel(options.ModelConfig.Model),
	}

	if options.BaseURL != "" {
		opts = append(opts, cohere.WithBaseURL(options.BaseURL))
	}

	return cohere.New(opts...)
}

func createOllamaModel(options Options) (llms.Model, error) {
	if options.BaseURL == "" {
		options.BaseURL = "http://localhost:11434"
	}

	return ollama.New(
		ollama.WithServerURL(options.BaseURL),
		ollama.WithModel(options.ModelConfig.Model),
	)
}

// RequestPatch sends the faulty source and its diagnostic to the model and
// returns the raw completion text.
func (c *Connector) RequestPatch(ctx context.Context, code, diagnostic string) (string, error) {
	if c.options.Redactor != nil {
		var masked int
		code, masked = c.options.Redactor.String(code)
		n := masked
		diagnostic, masked = c.options.Redactor.String(diagnostic)
		n += masked
		if n > 0 {
			log.Info().Int("secrets", n).Msg("Masked secrets before contacting oracle")
		}
	}

	system, user := c.options.Prompts.Build(code, diagnostic)
	c.options.Logger.LogRequest(c.GetModel(), system, user)

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}

	callOptions := []llms.CallOption{
		llms.WithTemperature(c.options.ModelConfig.Temperature),
	}
	if c.options.ModelConfig.MaxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(c.options.ModelConfig.MaxTokens))
	}
	if c.provider == ProviderGemini {
		callOptions = append(callOptions, llms.WithModel(c.options.ModelConfig.Model))
	}

	var text string
	result := retry.RetryWithBackoff(ctx, c.retry, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		resp, err := c.llm.GenerateContent(ctx, messages, callOptions...)
		if err != nil {
			log.Error().Err(err).
				Str("provider", string(c.provider)).
				Str("model", c.options.ModelConfig.Model).
				Msg("Oracle request failed")
			return err
		}
		if resp == nil || len(resp.Choices) == 0 {
			return fmt.Errorf("oracle returned no choices")
		}

		text = resp.Choices[0].Content
		log.Debug().
			Str("provider", string(c.provider)).
			Dur("duration", time.Since(start)).
			Int("response_bytes", len(text)).
			Msg("Oracle response received")
		return nil
	})

	if !result.Success {
		c.options.Logger.LogError("oracle request", result.LastError)
		return "", fmt.Errorf("oracle request failed after %d attempt(s): %w", result.Attempts, result.LastError)
	}

	c.options.Logger.LogResponse(text)
	return text, nil
}

// GetProvider returns the provider of this connector
func (c *Connector) GetProvider() Provider {
	return c.provider
}

// GetModel returns the model name from the config
func (c *Connector) GetModel() string {
	return c.options.ModelConfig.Model
}
