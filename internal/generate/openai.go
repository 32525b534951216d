package generate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"quizforge/internal/errors"
)

type OpenAIConfig struct {
	APIKey string
	Model  string
}

// OpenAI is an alternative backend using chat completions with a forced
// submit_quiz tool call, so the model returns the quiz document as the tool
// arguments instead of free text.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(c OpenAIConfig) *OpenAI {
	o := &OpenAI{
		client: openai.NewClient(c.APIKey),
		model:  c.Model,
	}

	if o.model == "" {
		o.model = openai.GPT4o
	}

	return o
}

func (o *OpenAI) GenerateQuiz(ctx context.Context, prompt string, att *Attachment) (string, error) {
	if att != nil {
		// Chat completions take no inline binary parts; text attachments are
		// folded into the prompt instead.
		if !strings.HasPrefix(att.MIMEType, "text/") {
			return "", errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("attachment type %s is not supported by the openai backend", att.MIMEType))
		}

		prompt += fmt.Sprintf("\n--- ATTACHED FILE '%s' ---\n%s\n---\n", att.Name, att.Data)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert quiz generator. Produce multiple choice quizzes and submit them with the submit_quiz tool.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        "submit_quiz",
					Description: "Submit the generated quiz document",
					Parameters:  quizToolSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: "submit_quiz"},
		},
	})
	if err != nil {
		if apiErr, ok := err.(*openai.APIError); ok {
			return "", &UpstreamError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return "", &UpstreamError{Message: err.Error()}
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Message: "no choices in response"}
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return "", &UpstreamError{Message: "no tool calls in response"}
	}

	call := choice.Message.ToolCalls[0]
	if call.Function.Name != "submit_quiz" {
		return "", &UpstreamError{Message: "unexpected tool call: " + call.Function.Name}
	}

	return call.Function.Arguments, nil
}

func quizToolSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quizTitle": map[string]any{
				"type":        "string",
				"description": "Title of the quiz",
			},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{
							"type":        "integer",
							"description": "Sequential question id starting from 1",
						},
						"questionText": map[string]any{
							"type": "string",
						},
						"options": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"id":   map[string]any{"type": "string"},
									"text": map[string]any{"type": "string"},
								},
								"required": []string{"id", "text"},
							},
						},
						"correctOptionId": map[string]any{
							"type":        "string",
							"description": "The id of the correct option",
						},
						"explanation": map[string]any{
							"type": "string",
						},
					},
					"required": []string{"id", "questionText", "options", "correctOptionId", "explanation"},
				},
			},
		},
		"required": []string{"quizTitle", "questions"},
	}
}
