package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-1.5-flash-latest"

	geminiTemperature     = 0.5
	geminiMaxOutputTokens = 8192
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

// Gemini calls the generativelanguage generateContent endpoint. The quiz is
// requested as a JSON response; an optional attachment travels inline as
// base64 with its declared media type.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGemini(c GeminiConfig) *Gemini {
	g := &Gemini{
		apiKey:  c.APIKey,
		model:   c.Model,
		baseURL: c.BaseURL,
		client:  c.Client,
	}

	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.baseURL == "" {
		g.baseURL = defaultGeminiBaseURL
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 60 * time.Second}
	}

	return g
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`

	PromptFeedback *struct {
		BlockReason   string `json:"blockReason"`
		SafetyRatings []struct {
			Category    string `json:"category"`
			Probability string `json:"probability"`
		} `json:"safetyRatings"`
	} `json:"promptFeedback"`

	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gemini) GenerateQuiz(ctx context.Context, prompt string, att *Attachment) (string, error) {
	parts := []geminiPart{{Text: prompt}}
	if att != nil {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MIMEType: att.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			},
		})
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      geminiTemperature,
			MaxOutputTokens:  geminiMaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	var out geminiResponse
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if json.Unmarshal(raw, &out) == nil && out.Error != nil {
			msg = out.Error.Message
		}
		return "", &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "undecodable response: " + err.Error()}
	}

	if fb := out.PromptFeedback; fb != nil && fb.BlockReason != "" {
		var details string
		for i, r := range fb.SafetyRatings {
			if i > 0 {
				details += ", "
			}
			details += r.Category + ": " + r.Probability
		}
		return "", &BlockedError{Reason: fb.BlockReason, Details: details}
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "response contains no candidate content"}
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
