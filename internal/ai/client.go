package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/planbot/internal/parser"
	"github.com/sashabaranov/go-openai"
)

// Client extracts plans from free text with an OpenAI-compatible model.
// It implements parser.Parser.
type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// extraction is the structured answer requested from the model.
type extraction struct {
	Found       bool   `json:"found"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

const systemPromptTemplate = `You extract a single planned activity from a user's message for a reminder bot.

Current local time: %s

Rules:
1. Set found=true only if the message names both something to do and a time of day.
2. Resolve relative dates ("tomorrow", "next friday", "in 3 days") against the current local time.
3. date is YYYY-MM-DD, time is HH:MM in 24-hour format, both in the user's local time.
4. If no date is given, use today when the time is still ahead, otherwise tomorrow.
5. description is what the user wants to be reminded about, without any date or time words, starting with a capital letter.
6. If found=false, leave date, time and description empty.`

var extractionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"found": {
			"type": "boolean",
			"description": "Whether the message describes a plan with a time of day"
		},
		"date": {
			"type": "string",
			"description": "Local date, YYYY-MM-DD"
		},
		"time": {
			"type": "string",
			"description": "Local time, HH:MM"
		},
		"description": {
			"type": "string",
			"description": "What to be reminded about"
		}
	},
	"required": ["found", "date", "time", "description"],
	"additionalProperties": false
}`)

func systemPrompt(localNow time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, localNow.Format("2006-01-02 15:04 (Monday)"))
}

// Parse asks the model for a date, time and description. A model answer of
// found=false, or one that does not parse, yields parser.ErrNoMatch.
func (c *Client) Parse(ctx context.Context, text string, localNow time.Time) (parser.Result, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(localNow),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "plan_extraction",
				Schema: extractionSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return parser.Result{}, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return parser.Result{}, fmt.Errorf("no response from AI")
	}

	var ex extraction
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &ex); err != nil {
		return parser.Result{}, fmt.Errorf("failed to parse AI response: %w", err)
	}

	desc := strings.TrimSpace(ex.Description)
	if !ex.Found || desc == "" {
		return parser.Result{}, parser.ErrNoMatch
	}
	at, err := time.Parse("2006-01-02 15:04", strings.TrimSpace(ex.Date)+" "+strings.TrimSpace(ex.Time))
	if err != nil {
		return parser.Result{}, fmt.Errorf("%w: model returned %q %q", parser.ErrNoMatch, ex.Date, ex.Time)
	}
	return parser.Result{At: at, Description: desc}, nil
}
