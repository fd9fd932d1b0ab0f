package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Request is a single chat-completion request. ImageURLs may hold https
// URLs or data:image/...;base64 URLs; when present the request is sent as
// a multimodal message.
type Request struct {
	System      string
	User        string
	ImageURLs   []string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for chat/vision completion providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

func buildMessages(req Request) []map[string]any {
	var userContent []any
	if req.User != "" {
		userContent = append(userContent, textPart{Type: "text", Text: req.User})
	}
	for _, u := range req.ImageURLs {
		p := imagePart{Type: "image_url"}
		p.ImageURL.URL = u
		userContent = append(userContent, p)
	}

	var messages []map[string]any
	if req.System != "" {
		messages = append(messages, map[string]any{
			"role":    "system",
			"content": []any{textPart{Type: "text", Text: req.System}},
		})
	}
	messages = append(messages, map[string]any{
		"role":    "user",
		"content": userContent,
	})
	return messages
}

func decodeChatResponse(body io.Reader) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// AzureProvider is an Azure OpenAI chat/vision deployment.
type AzureProvider struct {
	Endpoint   string
	Deployment string
	APIVersion string
	APIKey     string
	client     *http.Client
}

// NewAzureProvider creates a new Azure OpenAI provider. The API key is
// read from the environment variable named by apiKeyEnv.
func NewAzureProvider(endpoint, deployment, apiVersion, apiKeyEnv string) *AzureProvider {
	return &AzureProvider{
		Endpoint:   endpoint,
		Deployment: deployment,
		APIVersion: apiVersion,
		APIKey:     os.Getenv(apiKeyEnv),
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the endpoint, deployment, and API key are set.
func (a *AzureProvider) IsConfigured() bool {
	return a.Endpoint != "" && a.Deployment != "" && a.APIKey != ""
}

// Generate sends a chat-completion request to the Azure deployment and
// returns the assistant message content.
func (a *AzureProvider) Generate(ctx context.Context, req Request) (string, error) {
	if !a.IsConfigured() {
		return "", fmt.Errorf("azure provider not configured")
	}

	body := map[string]any{
		"messages":    buildMessages(req),
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.Endpoint, a.Deployment, a.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", a.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("azure API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure API returned %d: %s", resp.StatusCode, string(respBody))
	}

	return decodeChatResponse(resp.Body)
}

// OpenAIProvider is an OpenAI API provider used as a fallback when no
// Azure deployment is configured.
type OpenAIProvider struct {
	Model  string
	APIKey string
	client *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(model, apiKeyEnv string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:  model,
		APIKey: os.Getenv(apiKeyEnv),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a chat-completion request to OpenAI and returns the
// assistant message content.
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	body := map[string]any{
		"model":       o.Model,
		"messages":    buildMessages(req),
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(respBody))
	}

	return decodeChatResponse(resp.Body)
}

// CreateProvider creates a chat provider based on configuration: the
// Azure deployment when fully configured, otherwise the OpenAI fallback.
func CreateProvider(endpoint, deployment, apiVersion, azureKeyEnv, openaiModel, openaiKeyEnv string) Provider {
	a := NewAzureProvider(endpoint, deployment, apiVersion, azureKeyEnv)
	if a.IsConfigured() {
		log.Printf("Using Azure OpenAI deployment: %s", deployment)
		return a
	}

	o := NewOpenAIProvider(openaiModel, openaiKeyEnv)
	if o.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", openaiModel)
		return o
	}

	log.Println("No chat provider available. Set the Azure or OpenAI API key.")
	return nil
}
