package groq

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/bessim-dev/ocr-api/internal/config"
)

const (
	// DefaultTemperature keeps extraction output stable across calls.
	DefaultTemperature = 0.2

	// MaxTokensCarPlate bounds the legacy car-plate response.
	MaxTokensCarPlate = 512

	// MaxTokensStructured bounds generic structured responses.
	MaxTokensStructured = 1024
)

// ChatCompleter is the slice of the OpenAI-compatible client the OCR
// pipeline depends on. *openai.Client satisfies it; tests substitute
// fakes.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient builds a chat client against Groq's OpenAI-compatible API.
func NewClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	clientConfig.BaseURL = cfg.GroqBaseURL
	return openai.NewClientWithConfig(clientConfig)
}

// VisionRequest assembles a single-turn chat request carrying the prompt
// plus every image as a data URL, in caller-supplied order, with JSON-only
// output enforced via response_format.
func VisionRequest(model, prompt string, images []string, maxTokens int) openai.ChatCompletionRequest {
	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + img,
			},
		})
	}
	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		Temperature: DefaultTemperature,
		MaxTokens:   maxTokens,
		TopP:        1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

// ResponseContent extracts the textual content of the first choice, or ""
// when the response carries none.
func ResponseContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
