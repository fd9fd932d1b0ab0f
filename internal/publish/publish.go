// Package publish persists rendered stories to object storage under a
// generated unique slug and derives their public locators. Storage
// failure is the one error category that surfaces to the caller: a
// failed publish has no meaningful default.
package publish

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/suvichaar/storygen/internal/storage"
)

const (
	slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	slugLength   = 10
	slugSuffix   = "_G"
)

// NewSlug generates a run-unique slug: 10 random mixed-case
// alphanumerics plus a fixed suffix. Randomness comes from crypto/rand
// so concurrent runs cannot collide in practice.
func NewSlug() string {
	b := make([]byte, slugLength)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure means the platform is broken;
			// fall back to a fixed character rather than panic.
			b[i] = slugAlphabet[0]
			continue
		}
		b[i] = slugAlphabet[n.Int64()]
	}
	return string(b) + slugSuffix
}

// Artifact describes one published story.
type Artifact struct {
	Slug    string
	HTMLKey string
	HTMLURL string
	JSONKey string
	JSONURL string
}

// Publisher writes rendered documents and sidecar metadata to an object
// store under a configured key prefix.
type Publisher struct {
	store  storage.ObjectStore
	prefix string
}

// New creates a Publisher. prefix may be empty for bucket-root keys.
func New(store storage.ObjectStore, prefix string) *Publisher {
	return &Publisher{store: store, prefix: prefix}
}

func (p *Publisher) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}

// PublishQuiz writes the rendered quiz document under the given run
// slug and returns its public locator. The slug is generated once per
// run so any media re-hosted during the run shares it.
func (p *Publisher) PublishQuiz(ctx context.Context, slug, html string) (Artifact, error) {
	a := Artifact{
		Slug:    slug,
		HTMLKey: p.key(fmt.Sprintf("generated-quiz_%s.html", slug)),
	}
	a.HTMLURL = p.store.PublicURL(a.HTMLKey)

	if err := p.store.Put(ctx, a.HTMLKey, []byte(html), "text/html"); err != nil {
		return a, fmt.Errorf("publishing quiz %s: %w", a.HTMLKey, err)
	}
	return a, nil
}

// PublishSummary writes the rendered summary document together with its
// JSON sidecar under the given run slug. A partial failure is reported
// in the returned error; the Artifact still describes whichever
// payloads were persisted.
func (p *Publisher) PublishSummary(ctx context.Context, slug, html string, sidecar []byte) (Artifact, error) {
	base := fmt.Sprintf("generated-summary_%s", slug)
	a := Artifact{
		Slug:    slug,
		HTMLKey: p.key(base + ".html"),
		JSONKey: p.key(base + ".json"),
	}
	a.HTMLURL = p.store.PublicURL(a.HTMLKey)
	a.JSONURL = p.store.PublicURL(a.JSONKey)

	if err := p.store.Put(ctx, a.JSONKey, sidecar, "application/json"); err != nil {
		return a, fmt.Errorf("publishing sidecar %s: %w", a.JSONKey, err)
	}
	if err := p.store.Put(ctx, a.HTMLKey, []byte(html), "text/html"); err != nil {
		return a, fmt.Errorf("publishing summary %s (sidecar already persisted): %w", a.HTMLKey, err)
	}
	return a, nil
}
