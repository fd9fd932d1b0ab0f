// Package story holds the data model shared by the generation pipeline:
// the structured content produced by extraction, and the ordered set of
// image locators resolved for it.
package story

import "fmt"

// Default strings used whenever extracted content is missing a field.
const (
	DefaultTitle        = "Untitled Quiz"
	DefaultCoverHeading = "Test Your Knowledge!"
	DefaultCoverSubtext = "Let's see how well you can guess."
	DefaultResultsText  = "You've completed the quiz!"
)

// NoImageURL is the locator substituted when image search finds nothing.
const NoImageURL = "https://via.placeholder.com/720x1280?text=No+Image"

// OptionCount is the fixed number of answer options per quiz question.
const OptionCount = 4

// Slide is one slide or quiz question. Options is empty for summary
// slides and has exactly OptionCount entries for quiz questions.
// CorrectIndex is nil when the model did not report an answer.
type Slide struct {
	Text         string
	Options      []string
	CorrectIndex *int
	ImagePrompt  string
}

// Option returns the option at 0-based index j, or a generic placeholder
// when the slide has fewer options than expected.
func (s Slide) Option(j int) string {
	if j >= 0 && j < len(s.Options) && s.Options[j] != "" {
		return s.Options[j]
	}
	return DefaultOption(j)
}

// Correct returns the 0-based index of the correct option, clamped to
// [0, OptionCount). Absent or out-of-range values default to 0.
func (s Slide) Correct() int {
	if s.CorrectIndex == nil {
		return 0
	}
	if *s.CorrectIndex < 0 || *s.CorrectIndex >= OptionCount {
		return 0
	}
	return *s.CorrectIndex
}

// DefaultOption returns the placeholder text for the option at 0-based
// index j.
func DefaultOption(j int) string {
	return fmt.Sprintf("Option %d", j+1)
}

// DefaultQuestion returns the placeholder text for the 1-based question
// number n.
func DefaultQuestion(n int) string {
	return fmt.Sprintf("Question %d", n)
}

// Content is the full structured output of content extraction for one
// run. It is built once by the extractor and read-only afterwards.
type Content struct {
	Title        string
	CoverHeading string
	CoverSubtext string
	ResultsText  string
	Slides       []Slide
}

// AssetSet is the ordered list of image locators for one run. Index 0 is
// the cover slot, indices 1..N belong to the slides.
type AssetSet []string

// At returns the locator at index i. A set shorter than required is
// padded by repeating its first element; an empty set yields NoImageURL.
func (a AssetSet) At(i int) string {
	if len(a) == 0 {
		return NoImageURL
	}
	if i < 0 || i >= len(a) {
		return a[0]
	}
	return a[i]
}
