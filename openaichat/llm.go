// Package openaichat implements core.LLM on the OpenAI chat completions API.
package openaichat

import (
	"context"
	"errors"

	"fundamental/analyst-app/core"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type OpenAI struct {
	ModelName string
	client    openai.Client
}

func NewOpenAI(apiKey string, modelName string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		ModelName: modelName,
		client:    openai.NewClient(opts...),
	}, nil
}

func (o *OpenAI) Generate(ctx context.Context, systemContext string, history []core.ChatContent, input core.LLMInput) (core.LLMOutput, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.ModelName),
		Messages: toMessages(systemContext, history, input),
	})
	if err != nil {
		return core.LLMOutput{}, err
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return core.LLMOutput{}, errors.New("openai: empty response")
	}

	return core.LLMOutput{
		Text: completion.Choices[0].Message.Content,
		Stats: core.Stats{
			InputTokenCount:  int32(completion.Usage.PromptTokens),
			OutputTokenCount: int32(completion.Usage.CompletionTokens),
			TotalTokenCount:  int32(completion.Usage.TotalTokens),
		},
	}, nil
}

func toMessages(systemContext string, history []core.ChatContent, input core.LLMInput) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemContext != "" {
		messages = append(messages, openai.SystemMessage(systemContext))
	}
	for _, content := range history {
		switch content.Role {
		case "user":
			messages = append(messages, openai.UserMessage(content.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(content.Content))
		}
	}
	if input.Text != "" {
		messages = append(messages, openai.UserMessage(input.Text))
	}
	return messages
}
