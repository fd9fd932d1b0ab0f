// Package extract turns raw input (an image, a topic, keywords) into
// well-formed story content via a chat/vision provider. Every entry
// point fails soft: a non-200 response or unparsable body yields the
// documented placeholder content, never an error, so the rest of the
// pipeline always receives a complete structure.
package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/suvichaar/storygen/internal/llm"
	"github.com/suvichaar/storygen/internal/story"
)

const quizSystemPrompt = `You are a visual quiz assistant. Generate quiz from this image with %d questions and results.`

const quizTopicSystemPrompt = `You are a quiz assistant. Generate a quiz about the given topic with %d questions and results.`

const quizUserPrompt = `Generate %d MCQ questions with 4 options, correct_index, a title, cover_heading, cover_subtext, and result text. Return ONLY valid JSON. No extra text.`

const keywordSystemPrompt = `You are a helpful assistant that extracts the most relevant keyword for a quiz from an image.`

const keywordUserPrompt = `Extract a single lowercase educational keyword (e.g., 'books', 'exam', 'paper', 'notes') that best represents this image. Return as: {"keyword": "your_keyword"}`

const singleQuestionSystemPrompt = `You are a quiz MCQ generator. For each keyword/topic, create one meaningful MCQ.`

const singleQuestionUserPrompt = `Using the topic: '%s', generate 1 MCQ question (suitable for a quiz) with 4 options, a correct_index, and return only valid JSON like: {"question": ..., "options": [...], "correct_index": ...}. No extra text.`

const summarySystemPrompt = `You're an educational summarizer. Create %d slides (title, paragraph, image_prompt).`

const summaryUserPrompt = `Summarize into %d slides. Return ONLY valid JSON: {"title": ..., "slides": [{"title": ..., "paragraph": ..., "image_prompt": ...}]}. No extra text.`

// Extractor produces story content from a chat/vision provider.
type Extractor struct {
	provider llm.Provider
}

// New creates an Extractor. The provider may be nil, in which case every
// extraction returns its fallback content.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// ImageDataURL inlines raw image bytes as a base64 data URL suitable
// for a multimodal chat request.
func ImageDataURL(image []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
}

// QuizFromImage generates an n-question quiz from an uploaded image.
// topic is used only for fallback content when extraction fails.
func (e *Extractor) QuizFromImage(ctx context.Context, image []byte, topic string, n int) story.Content {
	req := llm.Request{
		System:      fmt.Sprintf(quizSystemPrompt, n),
		User:        fmt.Sprintf(quizUserPrompt, n),
		ImageURLs:   []string{ImageDataURL(image)},
		MaxTokens:   1800,
		Temperature: 0.7,
	}
	return e.quiz(ctx, req, topic, n)
}

// QuizFromTopic generates an n-question quiz from a topic string.
func (e *Extractor) QuizFromTopic(ctx context.Context, topic string, n int) story.Content {
	req := llm.Request{
		System:      fmt.Sprintf(quizTopicSystemPrompt, n),
		User:        fmt.Sprintf("Topic: %s. %s", topic, fmt.Sprintf(quizUserPrompt, n)),
		MaxTokens:   1800,
		Temperature: 0.7,
	}
	return e.quiz(ctx, req, topic, n)
}

func (e *Extractor) quiz(ctx context.Context, req llm.Request, topic string, n int) story.Content {
	if e.provider == nil {
		return FallbackQuiz(topic, n)
	}

	responseText, err := e.provider.Generate(ctx, req)
	if err != nil {
		log.Printf("Quiz extraction failed: %v", err)
		return FallbackQuiz(topic, n)
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return FallbackQuiz(topic, n)
	}

	content := parseQuiz(parsed)
	if len(content.Slides) == 0 {
		return FallbackQuiz(topic, n)
	}
	return content
}

func parseQuiz(parsed map[string]any) story.Content {
	content := story.Content{
		Title:        llm.String(parsed, "title", story.DefaultTitle),
		CoverHeading: llm.String(parsed, "cover_heading", story.DefaultCoverHeading),
		CoverSubtext: llm.String(parsed, "cover_subtext", story.DefaultCoverSubtext),
		ResultsText:  llm.String(parsed, "results_text", story.DefaultResultsText),
	}

	for i, q := range llm.Objects(parsed, "questions") {
		content.Slides = append(content.Slides, parseQuestion(q, i+1))
	}
	return content
}

func parseQuestion(q map[string]any, number int) story.Slide {
	options := llm.Strings(q, "options")
	for len(options) < story.OptionCount {
		options = append(options, story.DefaultOption(len(options)))
	}
	options = options[:story.OptionCount]

	correct := llm.Int(q, "correct_index", 0)
	if correct < 0 || correct >= story.OptionCount {
		correct = 0
	}

	return story.Slide{
		Text:         llm.String(q, "question", story.DefaultQuestion(number)),
		Options:      options,
		CorrectIndex: &correct,
		ImagePrompt:  llm.String(q, "image_prompt", ""),
	}
}

// QuestionForKeyword generates a single MCQ for one keyword. On failure
// it returns the documented default question for that keyword.
func (e *Extractor) QuestionForKeyword(ctx context.Context, keyword string) story.Slide {
	if e.provider == nil {
		return fallbackQuestion(keyword)
	}

	req := llm.Request{
		System:      singleQuestionSystemPrompt,
		User:        fmt.Sprintf(singleQuestionUserPrompt, keyword),
		MaxTokens:   300,
		Temperature: 0.7,
	}
	responseText, err := e.provider.Generate(ctx, req)
	if err != nil {
		log.Printf("Question generation failed for %q: %v", keyword, err)
		return fallbackQuestion(keyword)
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return fallbackQuestion(keyword)
	}

	slide := parseQuestion(parsed, 1)
	if llm.String(parsed, "question", "") == "" {
		return fallbackQuestion(keyword)
	}
	return slide
}

// KeywordFromImage extracts a single lowercase focus keyword from an
// image. Failure returns "quiz".
func (e *Extractor) KeywordFromImage(ctx context.Context, image []byte) string {
	if e.provider == nil {
		return "quiz"
	}

	req := llm.Request{
		System:      keywordSystemPrompt,
		User:        keywordUserPrompt,
		ImageURLs:   []string{ImageDataURL(image)},
		MaxTokens:   300,
		Temperature: 0.2,
	}
	responseText, err := e.provider.Generate(ctx, req)
	if err != nil {
		log.Printf("Keyword extraction failed: %v", err)
		return "quiz"
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return "quiz"
	}
	return llm.String(parsed, "keyword", "quiz")
}

// SummaryFromImages summarizes photographed notes (already hosted at the
// given URLs) into n summary slides. Each slide carries a paragraph and
// an image prompt for illustration synthesis.
func (e *Extractor) SummaryFromImages(ctx context.Context, imageURLs []string, n int) story.Content {
	if e.provider == nil {
		return fallbackSummary(n)
	}

	req := llm.Request{
		System:      fmt.Sprintf(summarySystemPrompt, n),
		User:        fmt.Sprintf(summaryUserPrompt, n),
		ImageURLs:   imageURLs,
		MaxTokens:   1800,
		Temperature: 0.7,
	}
	responseText, err := e.provider.Generate(ctx, req)
	if err != nil {
		log.Printf("Summary extraction failed: %v", err)
		return fallbackSummary(n)
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return fallbackSummary(n)
	}

	content := story.Content{
		Title: llm.String(parsed, "title", "Notes Summary"),
	}
	for i, s := range llm.Objects(parsed, "slides") {
		content.Slides = append(content.Slides, story.Slide{
			Text:        llm.String(s, "paragraph", fmt.Sprintf("Slide %d", i+1)),
			ImagePrompt: llm.String(s, "image_prompt", "Default image"),
		})
	}
	if len(content.Slides) == 0 {
		return fallbackSummary(n)
	}
	return content
}

// FallbackQuiz is the placeholder quiz substituted whenever extraction
// fails. Downstream components never special-case extraction failure;
// they receive this well-formed content instead.
func FallbackQuiz(topic string, n int) story.Content {
	if topic == "" {
		topic = "quiz"
	}
	content := story.Content{
		Title:        story.DefaultTitle,
		CoverHeading: story.DefaultCoverHeading,
		CoverSubtext: story.DefaultCoverSubtext,
		ResultsText:  story.DefaultResultsText,
	}
	for i := 1; i <= n; i++ {
		zero := 0
		content.Slides = append(content.Slides, story.Slide{
			Text:         fmt.Sprintf("Default Question %d for %s", i, topic),
			Options:      defaultOptions(),
			CorrectIndex: &zero,
		})
	}
	return content
}

func fallbackQuestion(keyword string) story.Slide {
	zero := 0
	return story.Slide{
		Text:         fmt.Sprintf("Default Question for %s", keyword),
		Options:      defaultOptions(),
		CorrectIndex: &zero,
	}
}

func fallbackSummary(n int) story.Content {
	content := story.Content{Title: "Notes Summary"}
	for i := 1; i <= n; i++ {
		content.Slides = append(content.Slides, story.Slide{
			Text:        "Placeholder",
			ImagePrompt: "Default image",
		})
	}
	return content
}

func defaultOptions() []string {
	options := make([]string, story.OptionCount)
	for j := range options {
		options[j] = story.DefaultOption(j)
	}
	return options
}
