package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sandwich-alignment/alignment/internal/providers"
)

// OpenAI is a provider for OpenAI
type OpenAI struct {
	apiKey  string
	baseURL string
}

// New returns a new OpenAI provider configured from OPENAI_API_KEY and
// the optional OPENAI_BASE_URL
func New() *OpenAI {
	return &OpenAI{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: os.Getenv("OPENAI_BASE_URL"),
	}
}

// NewWithOptions returns a provider with an explicit key and endpoint
func NewWithOptions(apiKey, baseURL string) *OpenAI {
	return &OpenAI{apiKey: apiKey, baseURL: baseURL}
}

// Generate sends the prompt as a chat completion
func (o *OpenAI) Generate(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	clientOptions := []option.RequestOption{
		option.WithAPIKey(o.apiKey),
		option.WithMaxRetries(3),
	}
	if o.baseURL != "" {
		baseURL := o.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		clientOptions = append(clientOptions, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(clientOptions...)

	var messages []openai.ChatCompletionMessageParamUnion
	if config.System != "" {
		messages = append(messages, openai.SystemMessage(config.System))
	}
	messages = append(messages, openai.UserMessage(config.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(config.Model),
		Temperature: openai.Float(config.Temperature),
	}
	if config.WantsJSON() {
		name := config.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: config.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return completion.Choices[0].Message.Content, nil
}
