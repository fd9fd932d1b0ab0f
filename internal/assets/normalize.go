package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"time"

	"golang.org/x/image/draw"

	"github.com/suvichaar/storygen/internal/storage"
)

// Normalizer fetches an image, scales it to a fixed pixel size,
// re-encodes it as JPEG, and re-hosts it at a stable location. It never
// raises: any failure during fetch, decode, re-encode, or upload yields
// the error sentinel locator.
type Normalizer struct {
	store  storage.ObjectStore
	prefix string
	client *http.Client
}

// NewNormalizer creates a Normalizer re-hosting under the given key
// prefix.
func NewNormalizer(store storage.ObjectStore, prefix string) *Normalizer {
	return &Normalizer{
		store:  store,
		prefix: prefix,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Rehost downloads srcURL, normalizes it to size, and uploads it under
// <prefix>/<slug>/<name>.jpg, returning the public locator. On any
// failure it returns ErrorImageURL.
func (n *Normalizer) Rehost(ctx context.Context, srcURL, slug, name string, size Size) string {
	img, err := n.fetch(ctx, srcURL)
	if err != nil {
		log.Printf("Fetching %s: %v", srcURL, err)
		return ErrorImageURL
	}

	scaled := scale(img, size)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, nil); err != nil {
		log.Printf("Encoding %s: %v", srcURL, err)
		return ErrorImageURL
	}

	key := n.key(slug, name)
	if err := n.store.Put(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
		log.Printf("Re-hosting %s: %v", key, err)
		return ErrorImageURL
	}
	return n.store.PublicURL(key)
}

func (n *Normalizer) key(slug, name string) string {
	if n.prefix == "" {
		return fmt.Sprintf("%s/%s.jpg", slug, name)
	}
	return fmt.Sprintf("%s/%s/%s.jpg", n.prefix, slug, name)
}

func (n *Normalizer) fetch(ctx context.Context, srcURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", srcURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func scale(src image.Image, size Size) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// GeneratedResolver is the synthesis strategy: each query is treated as
// an image prompt, generated, then normalized and re-hosted under the
// run's slug. Rank 0 is the cover and is stored at CoverSize; every
// other rank is a slide stored at Size.
type GeneratedResolver struct {
	Dalle *DalleClient
	Norm  *Normalizer
	Slug  string
	Size  Size
}

// Resolve generates an illustration for the prompt and re-hosts the
// normalized result. Always returns exactly one locator.
func (g *GeneratedResolver) Resolve(ctx context.Context, prompt string, rank int) string {
	url := g.Dalle.Generate(ctx, prompt)
	if url == NoGeneratedImageURL {
		return url
	}
	if rank == 0 {
		return g.Norm.Rehost(ctx, url, g.Slug, "cover", CoverSize)
	}
	return g.Norm.Rehost(ctx, url, g.Slug, fmt.Sprintf("slide%d", rank), g.Size)
}
