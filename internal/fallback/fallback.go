// Package fallback builds deterministic extractive results from the source
// text alone. It is used whenever the model path produces nothing usable and
// never fails: an internal panic yields a fixed placeholder.
package fallback

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"briefing/internal/domain"
	"briefing/internal/summarizer"
	"briefing/internal/textutil"
)

const (
	PageImagePrompt        = "A team collaboration infographic showing project milestones"
	PlaceholderImagePrompt = "A generic business infographic"
	PlaceholderText        = "Could not process this section."
	GenericTheme           = "Document analysis"
)

var titleMarkupRe = regexp.MustCompile(`^[#\-*>\d.]+\s*`)

// Generator produces extractive results. Use New; a zero Generator only
// ever yields placeholders for summaries.
type Generator struct {
	ranker *summarizer.FrequencyRanker
	logger *log.Logger
}

func New(logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{ranker: summarizer.NewFrequencyRanker(), logger: logger}
}

// placeholder logs the recovered value r and reports whether there was one.
func (g *Generator) placeholder(what string, r any) bool {
	if r == nil {
		return false
	}
	g.log().Printf("fallback %s failed, using placeholder: %v", what, r)
	return true
}

func (g *Generator) log() *log.Logger {
	if g == nil || g.logger == nil {
		return log.Default()
	}
	return g.logger
}

// Page summarizes one page as a short bulleted list.
func (g *Generator) Page(text string, pageNumber int, audience domain.Audience) (page domain.SimplifiedPage) {
	defer func() {
		if r := recover(); r != nil {
			g.log().Printf("fallback page %d failed, using placeholder: %v", pageNumber, r)
			page = PlaceholderPage(pageNumber)
		}
	}()

	firstLine := strings.SplitN(strings.TrimSpace(text), "\n", 2)[0]
	title := strings.TrimSpace(textutil.Truncate(titleMarkupRe.ReplaceAllString(firstLine, ""), 80))
	if title == "" {
		title = fmt.Sprintf("Section %d Summary", pageNumber)
	}

	var b strings.Builder
	b.WriteString("Here's what this section is about in simple terms:\n\n")
	sentences := textutil.LongSentences(text, 5, 20)
	for _, s := range sentences {
		fmt.Fprintf(&b, "• %s.\n", s)
	}
	if len(sentences) == 0 {
		fmt.Fprintf(&b, "• %s...\n", textutil.Truncate(text, 300))
	}
	fmt.Fprintf(&b, "\n📌 This section is written for a %s audience.", domain.ParseAudience(string(audience)))

	return domain.SimplifiedPage{
		PageNumber:     pageNumber,
		Title:          title,
		SimplifiedText: b.String(),
		ImagePrompt:    PageImagePrompt,
	}
}

// PlaceholderPage is the fixed page used when nothing else can be produced.
func PlaceholderPage(pageNumber int) domain.SimplifiedPage {
	return domain.SimplifiedPage{
		PageNumber:     pageNumber,
		Title:          fmt.Sprintf("Section %d", pageNumber),
		SimplifiedText: PlaceholderText,
		ImagePrompt:    PlaceholderImagePrompt,
	}
}

// Answer returns a low-confidence answer quoting the start of the document.
func (g *Generator) Answer(text string) (res domain.AnswerResult) {
	defer func() {
		if g.placeholder("answer", recover()) {
			res = domain.AnswerResult{Success: true, Answer: PlaceholderText, Confidence: domain.LevelLow}
		}
	}()
	return domain.AnswerResult{
		Success: true,
		Answer: "Based on the document, here is what I found related to your question:\n\n" +
			textutil.Truncate(text, 500) +
			"...\n\n(Note: AI service returned no structured answer, showing document excerpt instead.)",
		Confidence:      domain.LevelLow,
		RelevantExcerpt: textutil.Truncate(text, 200),
	}
}

// Summary joins the first long sentences; key topics are the most frequent terms.
func (g *Generator) Summary(text string) (res domain.SummaryResult) {
	defer func() {
		if g.placeholder("summary", recover()) {
			res = domain.SummaryResult{Success: true, Summary: PlaceholderText, WordCount: textutil.WordCount(PlaceholderText), KeyTopics: []string{}}
		}
	}()
	summary := textutil.Truncate(text, 300)
	if key := textutil.LongSentences(text, 3, 15); len(key) > 0 {
		summary = strings.Join(key, ". ") + "."
	}
	topics := g.ranker.TopTerms(text, 3)
	if topics == nil {
		topics = []string{}
	}
	return domain.SummaryResult{
		Success:   true,
		Summary:   summary,
		WordCount: textutil.WordCount(summary),
		KeyTopics: topics,
	}
}

// KeyPoints lists up to seven long sentences as medium-importance points.
func (g *Generator) KeyPoints(text string) (res domain.ExtractionResult) {
	defer func() {
		if g.placeholder("key points", recover()) {
			res = domain.ExtractionResult{
				Success:      true,
				KeyPoints:    []domain.KeyPoint{{Point: PlaceholderText, Importance: domain.LevelMedium}},
				OverallTheme: GenericTheme,
				ActionItems:  []string{},
			}
		}
	}()
	var points []domain.KeyPoint
	for _, s := range textutil.LongSentences(text, 7, 20) {
		points = append(points, domain.KeyPoint{Point: s, Importance: domain.LevelMedium})
	}
	if len(points) == 0 {
		points = []domain.KeyPoint{{Point: textutil.Truncate(text, 200), Importance: domain.LevelMedium}}
	}
	return domain.ExtractionResult{
		Success:      true,
		KeyPoints:    points,
		OverallTheme: GenericTheme,
		ActionItems:  []string{},
	}
}
