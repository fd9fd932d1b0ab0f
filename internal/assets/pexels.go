package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultPexelsBaseURL = "https://api.pexels.com"

// PexelsClient resolves images by stock-photo search. It implements the
// search strategy: the photo at the requested rank, or rank 0 when out
// of range, or the no-image sentinel when the search fails or is empty.
type PexelsClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewPexelsClient creates a Pexels search client.
func NewPexelsClient(apiKey string) *PexelsClient {
	return &PexelsClient{
		APIKey:  apiKey,
		BaseURL: defaultPexelsBaseURL,
		client:  &http.Client{Timeout: 8 * time.Second},
	}
}

// Resolve searches for query and returns the original-resolution URL of
// the portrait photo at the given rank. Never returns an error.
func (p *PexelsClient) Resolve(ctx context.Context, query string, rank int) string {
	if rank < 0 {
		rank = 0
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", rank+1))
	params.Set("orientation", "portrait")

	req, err := http.NewRequestWithContext(ctx, "GET", p.BaseURL+"/v1/search?"+params.Encode(), nil)
	if err != nil {
		return NoImageURL
	}
	req.Header.Set("Authorization", p.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("Pexels search failed for %q: %v", query, err)
		return NoImageURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Pexels search for %q returned %d", query, resp.StatusCode)
		return NoImageURL
	}

	var result struct {
		Photos []struct {
			Src struct {
				Original string `json:"original"`
			} `json:"src"`
		} `json:"photos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Pexels response for %q: %v", query, err)
		return NoImageURL
	}

	if len(result.Photos) > rank {
		return result.Photos[rank].Src.Original
	}
	if len(result.Photos) > 0 {
		return result.Photos[0].Src.Original
	}
	return NoImageURL
}
