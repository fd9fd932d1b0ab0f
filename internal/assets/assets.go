// Package assets resolves one image locator per content unit, either by
// stock-photo search or by image synthesis. Both strategies share one
// contract: exactly one locator comes back, real or sentinel, and no
// call ever returns an error or blocks without a timeout.
package assets

import (
	"context"

	"github.com/suvichaar/storygen/internal/story"
)

// Sentinel locators substituted on resolution failure.
const (
	// NoImageURL is returned when search finds nothing.
	NoImageURL = story.NoImageURL
	// NoGeneratedImageURL is returned when synthesis is exhausted.
	NoGeneratedImageURL = "https://via.placeholder.com/1024x1024?text=No+Image"
	// ErrorImageURL is returned when fetch/decode/re-encode/re-host fails.
	ErrorImageURL = "https://via.placeholder.com/720x1200?text=Error"
)

// Size is a target pixel size for normalized images.
type Size struct {
	Width  int
	Height int
}

// Normalized image sizes.
var (
	SlideSize = Size{Width: 720, Height: 1200}
	CoverSize = Size{Width: 640, Height: 853}
)

// Resolver obtains one image locator for a query. rank selects among
// multiple candidates where the strategy supports it (search rank,
// slide position). Implementations never fail: on any error they return
// a sentinel locator.
type Resolver interface {
	Resolve(ctx context.Context, query string, rank int) string
}
