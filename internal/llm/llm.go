package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/teemow/inboxpilot/internal/apierror"
	"github.com/teemow/inboxpilot/internal/logging"
)

// Groq defaults
const (
	GroqBaseURL  = "https://api.groq.com/openai/v1"
	DefaultModel = "llama-3.3-70b-versatile"
)

const (
	systemPrompt = "You are an AI assistant built by xAI, designed to help with email tasks efficiently."
	noResponse   = "No response generated."
	temperature  = 0.7
)

// OfflineReply is returned by Static when no API key is configured.
const OfflineReply = "Text generation is not configured. Set GROQ_API_KEY to enable AI responses."

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Static returns a Generator that always answers reply.
func Static(reply string) Generator {
	return Func(func(context.Context, string) (string, error) { return reply, nil })
}

// Groq generates text with a Groq-hosted model.
type Groq struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewGroq creates a Groq generator. Extra request options, such as a test
// base URL, are applied after the defaults.
func NewGroq(apiKey string, logger *slog.Logger, opts ...option.RequestOption) *Groq {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(GroqBaseURL),
	}, opts...)
	return &Groq{
		client: openai.NewClient(opts...),
		model:  DefaultModel,
		logger: logger,
	}
}

// New returns a Groq generator for apiKey, or Static(OfflineReply) when the
// key is empty.
func New(apiKey string, logger *slog.Logger) Generator {
	if strings.TrimSpace(apiKey) == "" {
		return Static(OfflineReply)
	}
	return NewGroq(apiKey, logger)
}

// Generate implements Generator.
func (g *Groq) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(systemPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Model:       shared.ChatModel(g.model),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		g.logger.Warn("groq completion failed", logging.Operation("generate"), logging.Err(err))
		return "", apierror.Wrap(http.StatusInternalServerError, "Groq API error: "+err.Error(), err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return noResponse, nil
	}
	return completion.Choices[0].Message.Content, nil
}
