// Package assemble maps extracted story content and resolved image
// locators into the flat field mapping a story template consumes. It is
// pure: no I/O, no failure. Every lookup degrades to a documented
// default, so any content/asset pair yields a complete mapping.
package assemble

import (
	"fmt"

	"github.com/suvichaar/storygen/internal/story"
)

// FieldMapping maps template placeholder names to rendered values. It is
// the wire contract with the template layer.
type FieldMapping map[string]string

// FieldKind is a per-slide field in the template schema.
type FieldKind string

// Per-slide field kinds.
const (
	FieldImage     FieldKind = "image"
	FieldTitle     FieldKind = "title"
	FieldText      FieldKind = "text"
	FieldQuestion  FieldKind = "question"
	FieldParagraph FieldKind = "paragraph"
	FieldAlt       FieldKind = "alt"
)

// Key builds the placeholder name for a per-slide field, e.g.
// Key(2, FieldQuestion) == "s2question1". Keys are generated from the
// (slideIndex, kind) pair everywhere; call sites never concatenate.
func Key(slideIndex int, kind FieldKind) string {
	return fmt.Sprintf("s%d%s1", slideIndex, kind)
}

// OptionKey builds the placeholder name for option j (1-based) of the
// slide at the given template index.
func OptionKey(slideIndex, j int) string {
	return fmt.Sprintf("s%doption%d", slideIndex, j)
}

// OptionAttrKey builds the placeholder name for the attribute string of
// option j (1-based) of the slide at the given template index.
func OptionAttrKey(slideIndex, j int) string {
	return OptionKey(slideIndex, j) + "attr"
}

// CorrectAttr is the attribute string written for the correct option at
// 1-based position j. It is opaque template-consumer syntax and must be
// produced verbatim.
func CorrectAttr(j int) string {
	return fmt.Sprintf(`option-%d-correct option-%d-confetti="📚"`, j, j)
}

// resultTiers is the fixed outcome-tier vocabulary. Static content, not
// derived from model output.
var resultTiers = [4]struct {
	Category string
	Text     string
}{
	{"Expert", "Incredible! You're a quiz master."},
	{"Smart Thinker", "Nice! You did well."},
	{"Explorer", "You're learning fast!"},
	{"Beginner", "Keep trying, you'll get there!"},
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Quiz builds the field mapping for a quiz story. The cover block reads
// AssetSet index 0; the slide at template index i (slides start at 2)
// reads AssetSet index i-1; outcome tiers read indices 1-4. Any index
// past the end of the set, and any missing text, falls back to the
// documented default.
func Quiz(content story.Content, assets story.AssetSet) FieldMapping {
	title := orDefault(content.Title, story.DefaultTitle)

	m := FieldMapping{
		"pagetitle":           title,
		"storytitle":          title,
		"typeofquiz":          "Auto Quiz",
		"potraitcoverurl":     assets.At(0),
		Key(1, FieldImage):    assets.At(0),
		Key(1, FieldTitle):    orDefault(content.CoverHeading, story.DefaultCoverHeading),
		Key(1, FieldText):     orDefault(content.CoverSubtext, story.DefaultCoverSubtext),
		"results_bg_image":    assets.At(0),
		"results_prompt_text": orDefault(content.ResultsText, story.DefaultResultsText),
	}

	for t, tier := range resultTiers {
		m[fmt.Sprintf("results%d_image", t+1)] = assets.At(t + 1)
		m[fmt.Sprintf("results%d_category", t+1)] = tier.Category
		m[fmt.Sprintf("results%d_text", t+1)] = tier.Text
	}

	for n, slide := range content.Slides {
		i := n + 2 // slides start at template index 2
		m[Key(i, FieldImage)] = assets.At(i - 1)
		m[Key(i, FieldQuestion)] = orDefault(slide.Text, story.DefaultQuestion(i-1))

		correct := slide.Correct()
		for j := 1; j <= story.OptionCount; j++ {
			m[OptionKey(i, j)] = slide.Option(j - 1)
			if j-1 == correct {
				m[OptionAttrKey(i, j)] = CorrectAttr(j)
			} else {
				m[OptionAttrKey(i, j)] = ""
			}
		}
	}

	return m
}

// Summary builds the field mapping for a note-summary story: a title
// cover at template index 1 and one paragraph slide per content unit
// starting at index 2. Alt text falls back from image prompt to slide
// text.
func Summary(content story.Content, assets story.AssetSet) FieldMapping {
	title := orDefault(content.Title, story.DefaultTitle)

	m := FieldMapping{
		"storytitle":       title,
		Key(1, FieldImage): assets.At(0),
		Key(1, FieldAlt):   title,
	}

	for n, slide := range content.Slides {
		i := n + 2
		m[Key(i, FieldImage)] = assets.At(i - 1)
		m[Key(i, FieldParagraph)] = orDefault(slide.Text, fmt.Sprintf("Slide %d", i-1))
		m[Key(i, FieldAlt)] = orDefault(slide.ImagePrompt, orDefault(slide.Text, title))
	}

	return m
}
