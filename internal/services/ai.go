package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/deliverynote-api/internal/models"
)

// ChatCompleter is the subset of the OpenAI client the drafter uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIService suggests delivery note line items from free text.
type AIService struct {
	client ChatCompleter
	model  string
}

func NewAIService(apiKey string) *AIService {
	return NewAIServiceWithClient(openai.NewClient(apiKey))
}

func NewAIServiceWithClient(client ChatCompleter) *AIService {
	return &AIService{
		client: client,
		model:  openai.GPT4o,
	}
}

// DraftLineItems extracts person hours and material quantities described in text.
// The result is a suggestion and is never stored.
func (s *AIService) DraftLineItems(ctx context.Context, projectName, text string) ([]models.LineItem, error) {
	if s == nil || s.client == nil {
		return nil, ErrAIUnavailable
	}

	prompt := fmt.Sprintf(`You extract delivery note line items for the construction project %q.
Read the text below and list every person who worked (quantity = hours) and every material used (quantity = units).

Text:
%s

Answer with a JSON array only, no prose:
[
  {"type": "person" | "material", "name": "who or what", "quantity": number greater than 0}
]
Return [] if the text mentions nothing billable.`, projectName, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var items []models.LineItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	// Drop anything a delivery note could not hold.
	valid := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item.Type != models.LineItemPerson && item.Type != models.LineItemMaterial {
			continue
		}
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 {
			continue
		}
		valid = append(valid, item)
	}
	return valid, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
