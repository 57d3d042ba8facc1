package brain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Provider configurations. Groq, xAI and OpenAI all speak the OpenAI
// chat-completions dialect; Ollama uses its own /api/chat shape.

// ChatConfig describes an OpenAI-compatible endpoint.
func ChatConfig(name, endpoint, apiKey, model string) *ProviderConfig {
	return &ProviderConfig{
		Name:          name,
		Endpoint:      endpoint,
		APIKey:        apiKey,
		Model:         model,
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		BuildBody:     buildChatBody,
		ParseResponse: parseChatResponse,
	}
}

// GroqConfig is the verification default.
func GroqConfig(apiKey, model string) *ProviderConfig {
	return ChatConfig("groq", "https://api.groq.com/openai/v1/chat/completions", apiKey, model)
}

// GrokConfig is the summary default.
func GrokConfig(apiKey, model string) *ProviderConfig {
	return ChatConfig("grok", "https://api.x.ai/v1/chat/completions", apiKey, model)
}

// OllamaConfig targets a local Ollama server.
func OllamaConfig(endpoint, model string) *ProviderConfig {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &ProviderConfig{
		Name:          "ollama",
		Endpoint:      strings.TrimRight(endpoint, "/") + "/api/chat",
		Model:         model,
		NoAuth:        true,
		BuildBody:     buildOllamaBody,
		ParseResponse: parseOllamaResponse,
	}
}

func messages(req Request) []map[string]string {
	msgs := []map[string]string{}
	if req.SystemPrompt != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	return append(msgs, map[string]string{"role": "user", "content": req.UserPrompt})
}

func buildChatBody(cfg *ProviderConfig, req Request) map[string]any {
	return map[string]any{
		"model":       cfg.Model,
		"messages":    messages(req),
		"temperature": req.Temperature,
		"max_tokens":  maxTokensOr(req.MaxTokens, 1024),
	}
}

func buildOllamaBody(cfg *ProviderConfig, req Request) map[string]any {
	return map[string]any{
		"model":    cfg.Model,
		"messages": messages(req),
		"stream":   false,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": maxTokensOr(req.MaxTokens, 1024),
		},
	}
}

func parseChatResponse(body []byte) (string, string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Choices) == 0 {
		return "", resp.Model, fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, resp.Model, nil
}

func parseOllamaResponse(body []byte) (string, string, error) {
	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	return resp.Message.Content, resp.Model, nil
}

func maxTokensOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}
