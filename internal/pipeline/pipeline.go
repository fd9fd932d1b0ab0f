// Package pipeline orchestrates one story-generation run: extract
// content, resolve image assets, assemble the field mapping, render the
// template, publish to object storage and record the result in the
// local index. The run is strictly sequential; every step before
// publish degrades to documented defaults instead of failing, so
// publish always receives a complete, renderable document.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/suvichaar/storygen/internal/assemble"
	"github.com/suvichaar/storygen/internal/assets"
	"github.com/suvichaar/storygen/internal/config"
	"github.com/suvichaar/storygen/internal/database"
	"github.com/suvichaar/storygen/internal/extract"
	"github.com/suvichaar/storygen/internal/llm"
	"github.com/suvichaar/storygen/internal/publish"
	"github.com/suvichaar/storygen/internal/render"
	"github.com/suvichaar/storygen/internal/storage"
	"github.com/suvichaar/storygen/internal/story"
)

// Story kinds, matching the database index vocabulary.
const (
	KindQuiz    = "quiz"
	KindSummary = "summary"
)

// Input describes one run.
type Input struct {
	Kind      string   // KindQuiz or KindSummary
	Topic     string   // quiz topic; also the default image query
	Image     []byte   // optional source image for extraction
	ImageURLs []string // hosted source images for summary extraction
	// Keywords are per-slide image-search queries, aligned with the
	// slides (Keywords[0] belongs to slide 1). For a quiz with no topic
	// and no image they also drive extraction: one question per keyword.
	Keywords     []string
	TemplateHTML string // the template to render into
	Questions    int    // 0 = configured default
	Strategy     string // "search", "generate", or "" = configured default
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Artifact publish.Artifact
	Steps    []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the 5-step story generation pipeline.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	store    storage.ObjectStore
	provider llm.Provider

	// resolver overrides per-run resolver construction when set.
	resolver assets.Resolver
}

// New creates a pipeline. db may be nil when no local index is wanted.
func New(cfg *config.Config, db *database.DB, store storage.ObjectStore) *Pipeline {
	provider := llm.CreateProvider(
		cfg.Azure.Endpoint,
		cfg.Azure.Deployment,
		cfg.Azure.APIVersion,
		cfg.Azure.APIKeyEnv,
		cfg.Azure.OpenAIModel,
		cfg.Azure.OpenAIKeyEnv,
	)
	return &Pipeline{cfg: cfg, db: db, store: store, provider: provider}
}

// Run executes the full pipeline for one story.
func (p *Pipeline) Run(ctx context.Context, in Input) *Result {
	r := &Result{}

	questions := in.Questions
	if questions == 0 {
		questions = p.cfg.Quiz.Questions
	}
	strategy := in.Strategy
	if strategy == "" {
		strategy = p.cfg.Quiz.ImageStrategy
	}

	// One slug per run: re-hosted media and the published document
	// share it so they can be correlated in storage.
	slug := publish.NewSlug()

	// Step 1: Extract
	content, topic, step := p.runExtract(ctx, in, questions)
	r.Steps = append(r.Steps, step)

	// Step 2: Resolve assets
	assetSet, step := p.runResolve(ctx, in, content, strategy, topic, slug)
	r.Steps = append(r.Steps, step)

	// Step 3: Assemble
	fields, step := p.runAssemble(in.Kind, content, assetSet)
	r.Steps = append(r.Steps, step)

	// Step 4: Render + publish
	artifact, step := p.runPublish(ctx, in.Kind, slug, in.TemplateHTML, fields)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Artifact = artifact

	// Step 5: Record
	r.Steps = append(r.Steps, p.runRecord(in.Kind, content, artifact))
	return r
}

// runExtract produces the story content and the effective search topic
// for asset resolution. Image-quiz runs without a topic derive one from
// the image itself.
func (p *Pipeline) runExtract(ctx context.Context, in Input, questions int) (story.Content, string, StepResult) {
	log.Println("Step 1/5: Extracting content...")
	ex := extract.New(p.provider)

	topic := in.Topic
	var content story.Content
	switch {
	case in.Kind == KindSummary:
		urls := in.ImageURLs
		if len(in.Image) > 0 {
			urls = append(urls, extract.ImageDataURL(in.Image))
		}
		content = ex.SummaryFromImages(ctx, urls, questions)
	case len(in.Image) > 0:
		content = ex.QuizFromImage(ctx, in.Image, in.Topic, questions)
		if topic == "" {
			topic = ex.KeywordFromImage(ctx, in.Image)
		}
	case in.Topic == "" && len(in.Keywords) > 0:
		content = keywordQuiz(ctx, ex, in.Keywords)
	default:
		content = ex.QuizFromTopic(ctx, in.Topic, questions)
	}
	return content, topic, StepResult{
		Name:    "Extract",
		Summary: fmt.Sprintf("Extracted %q with %d slides", content.Title, len(content.Slides)),
	}
}

// keywordQuiz builds a quiz with one question per keyword. Each keyword
// doubles as the image prompt for its slide.
func keywordQuiz(ctx context.Context, ex *extract.Extractor, keywords []string) story.Content {
	content := story.Content{
		Title:        story.DefaultTitle,
		CoverHeading: story.DefaultCoverHeading,
		CoverSubtext: story.DefaultCoverSubtext,
		ResultsText:  story.DefaultResultsText,
	}
	for _, kw := range keywords {
		slide := ex.QuestionForKeyword(ctx, kw)
		slide.ImagePrompt = kw
		content.Slides = append(content.Slides, slide)
	}
	return content
}

// runResolve builds the asset set: index 0 is the cover, indices 1..N
// align with the slides.
func (p *Pipeline) runResolve(ctx context.Context, in Input, content story.Content, strategy, topic, slug string) (story.AssetSet, StepResult) {
	log.Printf("Step 2/5: Resolving %d images (%s)...", len(content.Slides)+1, strategy)
	resolver := p.resolver
	if resolver == nil {
		resolver = p.resolverFor(strategy, slug)
	}

	set := make(story.AssetSet, 0, len(content.Slides)+1)
	set = append(set, resolver.Resolve(ctx, p.coverQuery(in, content, topic), 0))
	for i, slide := range content.Slides {
		set = append(set, resolver.Resolve(ctx, p.slideQuery(in, slide, i, topic), i+1))
	}

	real := 0
	for _, url := range set {
		if url != assets.NoImageURL && url != assets.NoGeneratedImageURL && url != assets.ErrorImageURL {
			real++
		}
	}
	return set, StepResult{
		Name:    "Resolve",
		Summary: fmt.Sprintf("Resolved %d/%d images", real, len(set)),
	}
}

func (p *Pipeline) resolverFor(strategy, slug string) assets.Resolver {
	if strategy == "generate" {
		return &assets.GeneratedResolver{
			Dalle: assets.NewDalleClient(p.cfg.Dalle.Endpoint, p.cfg.Dalle.APIKeyEnv, p.cfg.Dalle.Size),
			Norm:  assets.NewNormalizer(p.store, p.cfg.Storage.Prefix+"/media"),
			Slug:  slug,
			Size:  assets.SlideSize,
		}
	}
	return assets.NewPexelsClient(os.Getenv(p.cfg.Pexels.APIKeyEnv))
}

func (p *Pipeline) coverQuery(in Input, content story.Content, topic string) string {
	if topic != "" {
		return topic
	}
	if len(in.Keywords) > 0 {
		return in.Keywords[0]
	}
	return content.Title
}

// slideQuery picks the image query for the slide at position i
// (0-based): the keyword aligned with the slide, the extractor's image
// prompt, then the run topic.
func (p *Pipeline) slideQuery(in Input, slide story.Slide, i int, topic string) string {
	if i < len(in.Keywords) {
		return in.Keywords[i]
	}
	if slide.ImagePrompt != "" {
		return slide.ImagePrompt
	}
	if topic != "" {
		return topic
	}
	return slide.Text
}

func (p *Pipeline) runAssemble(kind string, content story.Content, set story.AssetSet) (assemble.FieldMapping, StepResult) {
	log.Println("Step 3/5: Assembling fields...")
	var fields assemble.FieldMapping
	if kind == KindSummary {
		fields = assemble.Summary(content, set)
	} else {
		fields = assemble.Quiz(content, set)
	}
	return fields, StepResult{
		Name:    "Assemble",
		Summary: fmt.Sprintf("Assembled %d fields for %d slides", len(fields), len(content.Slides)),
	}
}

func (p *Pipeline) runPublish(ctx context.Context, kind, slug, template string, fields assemble.FieldMapping) (publish.Artifact, StepResult) {
	log.Println("Step 4/5: Rendering and publishing...")
	html := render.Render(template, fields)
	pub := publish.New(p.store, p.cfg.Storage.Prefix)

	var artifact publish.Artifact
	var err error
	if kind == KindSummary {
		var sidecar []byte
		sidecar, err = json.MarshalIndent(fields, "", "  ")
		if err == nil {
			artifact, err = pub.PublishSummary(ctx, slug, html, sidecar)
		}
	} else {
		artifact, err = pub.PublishQuiz(ctx, slug, html)
	}
	if err != nil {
		return artifact, StepResult{Name: "Publish", Err: err}
	}
	return artifact, StepResult{
		Name:    "Publish",
		Summary: fmt.Sprintf("Published %s", artifact.HTMLURL),
	}
}

func (p *Pipeline) runRecord(kind string, content story.Content, artifact publish.Artifact) StepResult {
	log.Println("Step 5/5: Recording story...")
	if p.db == nil {
		return StepResult{Name: "Record", Summary: "No local index configured, skipped"}
	}

	var jsonURL *string
	if artifact.JSONURL != "" {
		jsonURL = &artifact.JSONURL
	}
	if kind == "" {
		kind = KindQuiz
	}
	if _, err := p.db.InsertStory(artifact.Slug, kind, content.Title, artifact.HTMLURL, jsonURL, len(content.Slides)); err != nil {
		return StepResult{Name: "Record", Err: fmt.Errorf("recording story %s: %w", artifact.Slug, err)}
	}
	return StepResult{Name: "Record", Summary: fmt.Sprintf("Recorded %s in local index", artifact.Slug)}
}
