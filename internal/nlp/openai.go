package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

const sentimentPrompt = "Score the sentiment of the user's text. Respond with only a JSON object " +
	`of the form {"Positive":0.0,"Negative":0.0,"Neutral":0.0,"Mixed":0.0} where the four scores sum to 1.`

const entityPrompt = "Find named entities in the user's text. Respond with only a JSON object of the form " +
	`{"Entities":[{"Type":"...","Text":"...","Score":0.0,"BeginOffset":0,"EndOffset":0}]} ` +
	"where offsets are character positions into the original text."

// OpenAI implements sentiment and entity detection through the OpenAI chat
// API, for deployments without a dedicated NLP service.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a detector using the given API key and model.
func NewOpenAI(apiKey, model string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIWithConfig is the injection point for tests and proxies.
func NewOpenAIWithConfig(config openai.ClientConfig, model string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (o *OpenAI) DetectSentiment(ctx context.Context, text, languageCode string) (segment.SentimentScores, error) {
	var scores segment.SentimentScores
	content, err := o.complete(ctx, sentimentPrompt, text, languageCode)
	if err != nil {
		return scores, fmt.Errorf("openai sentiment: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &scores); err != nil {
		return scores, fmt.Errorf("openai sentiment decode: %w", err)
	}
	return scores, nil
}

func (o *OpenAI) DetectEntities(ctx context.Context, text, languageCode string) ([]segment.Entity, error) {
	content, err := o.complete(ctx, entityPrompt, text, languageCode)
	if err != nil {
		return nil, fmt.Errorf("openai entities: %w", err)
	}
	var out entitiesResponse
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("openai entities decode: %w", err)
	}
	return out.Entities, nil
}

// DetectCustomEntities treats the endpoint name as unavailable here; custom
// models only exist behind the HTTP service.
func (o *OpenAI) DetectCustomEntities(context.Context, string, string) ([]segment.Entity, error) {
	return nil, fmt.Errorf("custom entity models are not supported by the openai provider")
}

func (o *OpenAI) complete(ctx context.Context, system, text, languageCode string) (string, error) {
	if languageCode != "" {
		system += " The text language is " + languageCode + "."
	}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate limit") {
			return "", fmt.Errorf("%v: %w", err, ErrThrottled)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
