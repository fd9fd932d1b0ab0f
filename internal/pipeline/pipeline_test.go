package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/suvichaar/storygen/internal/assemble"
	"github.com/suvichaar/storygen/internal/assets"
	"github.com/suvichaar/storygen/internal/config"
	"github.com/suvichaar/storygen/internal/database"
	"github.com/suvichaar/storygen/internal/llm"
)

type mockProvider struct {
	response  string
	responses []string // consumed in order when set
	err       error
	requests  []llm.Request
}

func (m *mockProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		return next, nil
	}
	return m.response, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

type fakeStore struct {
	puts   map[string][]byte
	types  map[string]string
	putErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{puts: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts[key] = body
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeResolver struct {
	calls   int
	queries []string
}

func (f *fakeResolver) Resolve(ctx context.Context, query string, rank int) string {
	f.calls++
	f.queries = append(f.queries, query)
	return fmt.Sprintf("https://img.test/%d.jpg", rank)
}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.Storage{Prefix: "suvichaarstories"},
		Quiz:    config.Quiz{Questions: 5, ImageStrategy: "search"},
	}
}

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const quizResponse = `{
  "title": "Science Quiz",
  "cover_heading": "Test Your Knowledge!",
  "cover_subtext": "How much do you know?",
  "results_text": "Well done!",
  "questions": [
    {"question": "Q1?", "options": ["A", "B", "C", "D"], "correct_index": 2},
    {"question": "Q2?", "options": ["A", "B", "C", "D"], "correct_index": 0},
    {"question": "Q3?", "options": ["A", "B", "C", "D"], "correct_index": 1},
    {"question": "Q4?", "options": ["A", "B", "C", "D"], "correct_index": 3}
  ]
}`

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}_G$`)

func TestRunQuizPipeline(t *testing.T) {
	store := newFakeStore()
	db := testDB(t)
	resolver := &fakeResolver{}

	p := New(testConfig(), db, store)
	p.provider = &mockProvider{response: quizResponse}
	p.resolver = resolver

	result := p.Run(context.Background(), Input{
		Kind:         KindQuiz,
		Topic:        "Science",
		TemplateHTML: `<h1>{{storytitle}}</h1><p>{{s2question1}}</p><img src="{{s2image1}}">`,
		Questions:    4,
	})

	if result.Failed() {
		for _, s := range result.Steps {
			if s.Err != nil {
				t.Fatalf("step %s failed: %v", s.Name, s.Err)
			}
		}
	}
	if len(result.Steps) != 5 {
		t.Fatalf("got %d steps, want 5", len(result.Steps))
	}
	if !slugPattern.MatchString(result.Artifact.Slug) {
		t.Errorf("slug %q does not match expected format", result.Artifact.Slug)
	}

	// One cover image plus one per slide.
	if resolver.calls != 5 {
		t.Errorf("resolver called %d times, want 5", resolver.calls)
	}

	wantKey := "suvichaarstories/generated-quiz_" + result.Artifact.Slug + ".html"
	body, ok := store.puts[wantKey]
	if !ok {
		t.Fatalf("no object stored at %q; stored keys: %v", wantKey, keys(store.puts))
	}
	html := string(body)
	if !strings.Contains(html, "<h1>Science Quiz</h1>") {
		t.Errorf("rendered HTML missing title: %s", html)
	}
	if !strings.Contains(html, "<p>Q1?</p>") {
		t.Errorf("rendered HTML missing first question: %s", html)
	}
	if store.types[wantKey] != "text/html" {
		t.Errorf("content type = %q, want text/html", store.types[wantKey])
	}

	stored, err := db.GetStory(result.Artifact.Slug)
	if err != nil {
		t.Fatalf("story not recorded: %v", err)
	}
	if stored.Title != "Science Quiz" || stored.Kind != "quiz" || stored.SlideCount != 4 {
		t.Errorf("recorded story = %+v", stored)
	}
}

func TestRunSummaryPipeline(t *testing.T) {
	store := newFakeStore()
	db := testDB(t)

	p := New(testConfig(), db, store)
	// Non-JSON response exercises the extraction fallback.
	p.provider = &mockProvider{response: "sorry, I cannot do that"}
	p.resolver = &fakeResolver{}

	result := p.Run(context.Background(), Input{
		Kind:         KindSummary,
		ImageURLs:    []string{"https://cdn.test/notes1.jpg"},
		TemplateHTML: `{{storytitle}} / {{s2paragraph1}}`,
		Questions:    5,
	})

	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}
	if result.Artifact.JSONURL == "" {
		t.Fatal("summary artifact has no JSON sidecar URL")
	}

	jsonKey := "suvichaarstories/generated-summary_" + result.Artifact.Slug + ".json"
	sidecar, ok := store.puts[jsonKey]
	if !ok {
		t.Fatalf("no sidecar stored at %q", jsonKey)
	}
	var fields map[string]string
	if err := json.Unmarshal(sidecar, &fields); err != nil {
		t.Fatalf("sidecar is not valid JSON: %v", err)
	}
	if fields["storytitle"] == "" {
		t.Error("sidecar missing storytitle")
	}

	stored, err := db.GetStory(result.Artifact.Slug)
	if err != nil {
		t.Fatalf("story not recorded: %v", err)
	}
	if stored.Kind != "summary" {
		t.Errorf("recorded kind = %q, want summary", stored.Kind)
	}
	if stored.JSONURL == nil || *stored.JSONURL != result.Artifact.JSONURL {
		t.Errorf("recorded JSON URL = %v, want %q", stored.JSONURL, result.Artifact.JSONURL)
	}
}

func TestRunPublishFailure(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("bucket unavailable")
	db := testDB(t)

	p := New(testConfig(), db, store)
	p.provider = &mockProvider{response: quizResponse}
	p.resolver = &fakeResolver{}

	result := p.Run(context.Background(), Input{
		Kind:         KindQuiz,
		Topic:        "Science",
		TemplateHTML: "{{storytitle}}",
	})

	if !result.Failed() {
		t.Fatal("expected pipeline failure when storage is down")
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Name != "Publish" || last.Err == nil {
		t.Errorf("last step = %+v, want failed Publish", last)
	}

	// Nothing must be recorded after a failed publish.
	stories, err := db.GetAllStories()
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 0 {
		t.Errorf("got %d recorded stories after failed publish, want 0", len(stories))
	}
}

func TestRunWithoutDatabase(t *testing.T) {
	store := newFakeStore()

	p := New(testConfig(), nil, store)
	p.provider = &mockProvider{response: quizResponse}
	p.resolver = &fakeResolver{}

	result := p.Run(context.Background(), Input{
		Kind:         KindQuiz,
		Topic:        "Science",
		TemplateHTML: "{{storytitle}}",
	})

	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}
	record := result.Steps[len(result.Steps)-1]
	if record.Name != "Record" || record.Err != nil {
		t.Errorf("record step = %+v", record)
	}
}

func TestRunUsesConfigDefaults(t *testing.T) {
	store := newFakeStore()
	resolver := &fakeResolver{}

	p := New(testConfig(), nil, store)
	// Provider error falls back to the default quiz of configured size.
	p.provider = &mockProvider{err: errors.New("api down")}
	p.resolver = resolver

	result := p.Run(context.Background(), Input{
		Kind:         KindQuiz,
		Topic:        "History",
		TemplateHTML: "{{s6question1}}",
	})

	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}
	// 5 configured questions: cover + 5 slides resolved.
	if resolver.calls != 6 {
		t.Errorf("resolver called %d times, want 6", resolver.calls)
	}
	key := "suvichaarstories/generated-quiz_" + result.Artifact.Slug + ".html"
	if got := string(store.puts[key]); got != "Default Question 5 for History" {
		t.Errorf("rendered last question = %q", got)
	}
}

func TestRunSummaryFromUploadedImage(t *testing.T) {
	store := newFakeStore()
	provider := &mockProvider{response: "not json"}

	p := New(testConfig(), nil, store)
	p.provider = provider
	p.resolver = &fakeResolver{}

	result := p.Run(context.Background(), Input{
		Kind:         KindSummary,
		Image:        []byte("raw image bytes"),
		TemplateHTML: "{{storytitle}}",
	})

	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}
	if len(provider.requests) == 0 {
		t.Fatal("extraction never reached the provider")
	}
	req := provider.requests[0]
	if len(req.ImageURLs) != 1 {
		t.Fatalf("summary request carries %d images, want 1", len(req.ImageURLs))
	}
	if !strings.HasPrefix(req.ImageURLs[0], "data:image/jpeg;base64,") {
		t.Errorf("uploaded image not inlined as a data URL: %q", req.ImageURLs[0])
	}
}

func TestRunKeywordQuiz(t *testing.T) {
	store := newFakeStore()
	db := testDB(t)
	resolver := &fakeResolver{}

	p := New(testConfig(), db, store)
	p.provider = &mockProvider{
		response: `{"question": "Which planet?", "options": ["A", "B", "C", "D"], "correct_index": 1}`,
	}
	p.resolver = resolver

	result := p.Run(context.Background(), Input{
		Kind:         KindQuiz,
		Keywords:     []string{"mars", "venus", "jupiter"},
		TemplateHTML: "{{s2question1}}|{{s4question1}}",
	})

	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}

	// One question per keyword: cover + 3 slides resolved, each slide
	// searched under its own keyword.
	if resolver.calls != 4 {
		t.Fatalf("resolver called %d times, want 4", resolver.calls)
	}
	want := []string{"mars", "mars", "venus", "jupiter"}
	for i, q := range want {
		if resolver.queries[i] != q {
			t.Errorf("query %d = %q, want %q", i, resolver.queries[i], q)
		}
	}

	key := "suvichaarstories/generated-quiz_" + result.Artifact.Slug + ".html"
	if got := string(store.puts[key]); got != "Which planet?|Which planet?" {
		t.Errorf("rendered questions = %q", got)
	}

	stored, err := db.GetStory(result.Artifact.Slug)
	if err != nil {
		t.Fatalf("story not recorded: %v", err)
	}
	if stored.SlideCount != 3 {
		t.Errorf("slide count = %d, want 3", stored.SlideCount)
	}
}

func TestRunImageQuizDerivesSearchKeyword(t *testing.T) {
	store := newFakeStore()
	resolver := &fakeResolver{}

	p := New(testConfig(), nil, store)
	p.provider = &mockProvider{
		responses: []string{quizResponse, `{"keyword": "books"}`},
	}
	p.resolver = resolver

	result := p.Run(context.Background(), Input{
		Kind:         KindQuiz,
		Image:        []byte("raw image bytes"),
		TemplateHTML: "{{storytitle}}",
	})

	if result.Failed() {
		t.Fatalf("pipeline failed: %+v", result.Steps)
	}
	if resolver.calls != 5 {
		t.Fatalf("resolver called %d times, want 5", resolver.calls)
	}
	// Without a topic, the keyword extracted from the image drives
	// every search query.
	for i, q := range resolver.queries {
		if q != "books" {
			t.Errorf("query %d = %q, want books", i, q)
		}
	}
}

func TestGenerateStrategySharesRunSlug(t *testing.T) {
	p := New(testConfig(), nil, newFakeStore())

	r := p.resolverFor("generate", "AbCdEfGhIj_G")
	g, ok := r.(*assets.GeneratedResolver)
	if !ok {
		t.Fatalf("generate strategy built %T, want *assets.GeneratedResolver", r)
	}
	if g.Slug != "AbCdEfGhIj_G" {
		t.Errorf("resolver slug = %q, want the run slug", g.Slug)
	}

	fields := assemble.FieldMapping{"storytitle": "x"}
	artifact, step := p.runPublish(context.Background(), KindQuiz, "AbCdEfGhIj_G", "{{storytitle}}", fields)
	if step.Err != nil {
		t.Fatalf("publish failed: %v", step.Err)
	}
	if artifact.Slug != "AbCdEfGhIj_G" {
		t.Errorf("published slug = %q, want the run slug", artifact.Slug)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
