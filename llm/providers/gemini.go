// Package providers implements LLM provider adapters.
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/c360studio/ontogenia/llm"
)

// GeminiProvider implements the Gemini generateContent API.
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// APIKeyEnvs prefers GEMINI_API_KEY and falls back to GOOGLE_API_KEY.
func (g *GeminiProvider) APIKeyEnvs() []string {
	return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
}

// BuildURL constructs the generateContent endpoint for model.
func (g *GeminiProvider) BuildURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, url.PathEscape(model))
}

// SetHeaders adds the API key header.
func (g *GeminiProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SafetySettings    []geminiSafetySetting  `json:"safetySettings,omitempty"`
}

// BuildRequestBody creates the generateContent request body. System
// messages become the system instruction and assistant turns use the
// "model" role.
func (g *GeminiProvider) BuildRequestBody(_ string, messages []llm.Message, params llm.Params) ([]byte, error) {
	req := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     params.Temperature,
			MaxOutputTokens: params.MaxTokens,
		},
	}

	var system []string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("gemini request needs at least one user message")
	}

	for _, s := range params.Safety {
		req.SafetySettings = append(req.SafetySettings, geminiSafetySetting{Category: s.Category, Threshold: s.Threshold})
	}

	return json.Marshal(req)
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// ParseResponse extracts the first candidate's text. A blocked prompt or a
// response without candidates is malformed output, not a transport failure.
func (g *GeminiProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewMalformedResponseError("gemini", fmt.Sprintf("invalid JSON: %v", err), string(body))
	}

	if resp.PromptFeedback.BlockReason != "" {
		return nil, llm.NewMalformedResponseError("gemini", "prompt blocked: "+resp.PromptFeedback.BlockReason, "")
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.NewMalformedResponseError("gemini", "no candidates in response", string(body))
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 && cand.FinishReason == "SAFETY" {
		return nil, llm.NewMalformedResponseError("gemini", "response blocked by safety filters", "")
	}

	name := resp.ModelVersion
	if name == "" {
		name = model
	}
	return &llm.Response{
		Content: sb.String(),
		Model:   name,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		FinishReason: cand.FinishReason,
	}, nil
}
