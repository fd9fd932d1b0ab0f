package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

const generateAttempts = 3

// DalleClient generates images from text prompts via an Azure DALL·E
// deployment. HTTP 429 is the throttling signal: the client sleeps a
// fixed delay and retries, up to generateAttempts in total.
type DalleClient struct {
	Endpoint   string
	APIKey     string
	Size       string
	RetryDelay time.Duration
	client     *http.Client
}

// NewDalleClient creates an image-synthesis client. The API key is read
// from the environment variable named by apiKeyEnv.
func NewDalleClient(endpoint, apiKeyEnv, size string) *DalleClient {
	if size == "" {
		size = "1024x1024"
	}
	return &DalleClient{
		Endpoint:   endpoint,
		APIKey:     os.Getenv(apiKeyEnv),
		Size:       size,
		RetryDelay: 10 * time.Second,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate submits the prompt and returns the generated image URL, or
// the no-image sentinel when the retry budget is exhausted or the
// request fails. Never returns an error.
func (d *DalleClient) Generate(ctx context.Context, prompt string) string {
	payload, err := json.Marshal(map[string]any{
		"prompt": prompt,
		"n":      1,
		"size":   d.Size,
	})
	if err != nil {
		return NoGeneratedImageURL
	}

	for attempt := 0; attempt < generateAttempts; attempt++ {
		url, retry := d.generateOnce(ctx, payload)
		if url != "" {
			return url
		}
		if !retry {
			break
		}
		log.Printf("Image generation throttled, retrying in %s", d.RetryDelay)
		select {
		case <-time.After(d.RetryDelay):
		case <-ctx.Done():
			return NoGeneratedImageURL
		}
	}
	return NoGeneratedImageURL
}

// generateOnce performs one attempt. retry is true only on throttling.
func (d *DalleClient) generateOnce(ctx context.Context, payload []byte) (url string, retry bool) {
	req, err := http.NewRequestWithContext(ctx, "POST", d.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", d.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("Image generation request failed: %v", err)
		return "", false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", true
	default:
		log.Printf("Image generation returned %d", resp.StatusCode)
		return "", false
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Image generation response: %v", err)
		return "", false
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", false
	}
	return result.Data[0].URL, false
}
