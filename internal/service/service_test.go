package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing/internal/chunker"
	"briefing/internal/domain"
	"briefing/internal/embedding"
	"briefing/internal/embedding/hashing"
	"briefing/internal/fallback"
	"briefing/internal/llm"
	"briefing/internal/metrics"
	"briefing/internal/pages"
	"briefing/internal/retrieval"
)

var quiet = log.New(io.Discard, "", 0)

// scripted is a Generator driven by a reply function.
type scripted struct {
	calls int32
	reply func(prompt, system string) string
}

func (m *scripted) Invoke(_ context.Context, prompt, system string) string {
	atomic.AddInt32(&m.calls, 1)
	return m.reply(prompt, system)
}

func newService(model domain.Generator) *Service {
	provider := embedding.NewProvider(func(context.Context) (domain.Embedder, error) {
		return hashing.NewEmbedder(128), nil
	}, quiet)
	r := retrieval.New(chunker.NewRecursiveChunker(200, 40, quiet), provider, nil, retrieval.Config{}, quiet, nil)
	return New(r, pages.NewSegmenter(3000, quiet), model, Config{MaxConcurrency: 3}, quiet, metrics.New())
}

// pageContent pulls the page body out of a simplify prompt.
func pageContent(prompt string) string {
	const open = "Content to simplify:\n---\n"
	i := strings.Index(prompt, open)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(open):]
	return rest[:strings.LastIndex(rest, "\n---\n")]
}

func TestSimplify_OrderAndFailures(t *testing.T) {
	var segs []string
	for i := 1; i <= 9; i++ {
		switch i % 3 {
		case 0:
			segs = append(segs, fmt.Sprintf("FAIL page %d. The vendor contract renewal is still waiting on legal review.", i))
		case 1:
			segs = append(segs, fmt.Sprintf("PANIC page %d. The data warehouse migration finished late on Friday night.", i))
		default:
			segs = append(segs, fmt.Sprintf("Good page %d. The hiring plan for the support team was approved today.", i))
		}
	}
	text := strings.Join(segs, "\f")

	model := &scripted{reply: func(prompt, _ string) string {
		content := pageContent(prompt)
		var n int
		fmt.Sscanf(content[strings.Index(content, "page ")+5:], "%d", &n)
		time.Sleep(time.Duration(10-n) * 3 * time.Millisecond)
		switch {
		case strings.HasPrefix(content, "FAIL"):
			return ""
		case strings.HasPrefix(content, "PANIC"):
			panic("model exploded")
		}
		return fmt.Sprintf("```json\n{\"title\": \"Page %d\", \"simplified_text\": \"simple %d\", \"image_prompt\": \"chart\"}\n```", n, n)
	}}

	res := newService(model).Simplify(context.Background(), domain.Request{Text: text, Audience: "client", UserID: "u1"})
	require.True(t, res.Success)
	require.Len(t, res.Pages, 9)
	assert.EqualValues(t, 9, atomic.LoadInt32(&model.calls))

	fb := fallback.New(quiet)
	for i, p := range res.Pages {
		n := i + 1
		assert.Equal(t, n, p.PageNumber)
		if n%3 == 2 {
			assert.Equal(t, domain.SimplifiedPage{PageNumber: n, Title: fmt.Sprintf("Page %d", n), SimplifiedText: fmt.Sprintf("simple %d", n), ImagePrompt: "chart"}, p)
		} else {
			assert.Equal(t, fb.Page(segs[i], n, domain.AudienceClient), p, "page %d", n)
		}
	}
}

func TestSimplify_ModelUnavailable(t *testing.T) {
	client := llm.NewClient(llm.Config{}, quiet, nil)
	text := "Intro paragraph about the roadmap and its many important milestones.\n\nSecond paragraph about hiring and onboarding new engineers."
	res := newService(client).Simplify(context.Background(), domain.Request{Text: text})
	require.True(t, res.Success)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, fallback.New(quiet).Page(text, 1, domain.AudienceManager), res.Pages[0])
}

func TestSimplify_DegradedReplyKeepsRawText(t *testing.T) {
	model := &scripted{reply: func(string, string) string { return "Plain prose, no JSON." }}
	res := newService(model).Simplify(context.Background(), domain.Request{Text: "One page only with enough words in it."})
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "Plain prose, no JSON.", res.Pages[0].SimplifiedText)
	assert.Equal(t, "Section 1", res.Pages[0].Title)
}

func TestSimplify_RetrievedContextInPrompt(t *testing.T) {
	var sawContext int32
	model := &scripted{reply: func(prompt, _ string) string {
		if strings.Contains(prompt, "additional relevant context") {
			atomic.AddInt32(&sawContext, 1)
		}
		return `{"simplified_text": "ok"}`
	}}
	text := "Budget notes for the quarter.\fTimeline notes for the launch."
	res := newService(model).Simplify(context.Background(), domain.Request{Text: text})
	require.Len(t, res.Pages, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&sawContext))
	assert.Equal(t, "Section 2", res.Pages[1].Title)
}

func TestAsk_ModelUnavailable(t *testing.T) {
	text := "The launch date moved to March because the vendor missed the integration milestone."
	res := newService(llm.NewClient(llm.Config{}, quiet, nil)).Ask(context.Background(), domain.Request{Text: text, Question: "When is launch?"})
	assert.True(t, res.Success)
	assert.Equal(t, domain.LevelLow, res.Confidence)
	assert.Contains(t, res.Answer, text[:40])
	assert.Equal(t, text, res.RelevantExcerpt)
}

func TestAsk_Answer(t *testing.T) {
	var prompt string
	model := &scripted{reply: func(p, system string) string {
		prompt = p
		assert.Contains(t, system, "Q&A")
		return `{"answer": "March", "confidence": "HIGH", "relevant_excerpt": "moved to March"}`
	}}
	res := newService(model).Ask(context.Background(), domain.Request{Text: "The launch moved to March.", Question: "When?"})
	assert.Equal(t, domain.AnswerResult{Success: true, Answer: "March", Confidence: domain.LevelHigh, RelevantExcerpt: "moved to March"}, res)
	assert.Contains(t, prompt, "relevant context from the uploaded document")
}

func TestAsk_SimplifiedTextSubstitute(t *testing.T) {
	model := &scripted{reply: func(string, string) string { return "It moved to March." }}
	res := newService(model).Ask(context.Background(), domain.Request{Text: "doc", Question: "q"})
	assert.Equal(t, domain.AnswerResult{Success: true, Answer: "It moved to March.", Confidence: domain.LevelMedium}, res)
}

func TestAsk_UnknownConfidenceNormalized(t *testing.T) {
	model := &scripted{reply: func(string, string) string { return `{"answer": "a", "confidence": "certain"}` }}
	res := newService(model).Ask(context.Background(), domain.Request{Text: "doc", Question: "q"})
	assert.Equal(t, domain.LevelMedium, res.Confidence)
}

func TestAsk_Panic(t *testing.T) {
	model := &scripted{reply: func(string, string) string { panic("kaboom") }}
	res := newService(model).Ask(context.Background(), domain.Request{Text: "doc", Question: "q"})
	assert.False(t, res.Success)
	assert.Equal(t, "An error occurred while processing your question: kaboom", res.Answer)
	assert.Equal(t, domain.LevelLow, res.Confidence)
}

func TestSummarize_FencedJSON(t *testing.T) {
	model := &scripted{reply: func(string, string) string {
		return "```json\n{\"summary\":\"X\",\"word_count\":1,\"key_topics\":[]}\n```"
	}}
	res := newService(model).Summarize(context.Background(), domain.Request{Text: "Some long document text."})
	assert.Equal(t, domain.SummaryResult{Success: true, Summary: "X", WordCount: 1, KeyTopics: []string{}}, res)
}

func TestSummarize_MissingWordCount(t *testing.T) {
	model := &scripted{reply: func(string, string) string { return `{"summary":"three words here","key_topics":["a"]}` }}
	res := newService(model).Summarize(context.Background(), domain.Request{Text: "t"})
	assert.Equal(t, 3, res.WordCount)
	assert.Equal(t, []string{"a"}, res.KeyTopics)
}

func TestSummarize_Fallback(t *testing.T) {
	text := "The first sentence is long enough to count. The second sentence is also long enough. Tiny. The fourth one is ignored entirely."
	res := newService(&scripted{reply: func(string, string) string { return "" }}).Summarize(context.Background(), domain.Request{Text: text})
	assert.True(t, res.Success)
	assert.Equal(t, "The first sentence is long enough to count. The second sentence is also long enough.", res.Summary)
	assert.Equal(t, 15, res.WordCount)
}

func TestSummarize_Panic(t *testing.T) {
	res := newService(&scripted{reply: func(string, string) string { panic("nope") }}).Summarize(context.Background(), domain.Request{Text: "t"})
	assert.Equal(t, domain.SummaryResult{Success: false, Summary: "Summarization failed: nope", KeyTopics: []string{}}, res)
}

func TestExtract(t *testing.T) {
	model := &scripted{reply: func(string, string) string {
		return `Here: {"key_points": [{"point": "Ship v2", "importance": "high"}, {"point": "Hire", "importance": "urgent"}, {"importance": "low"}], "overall_theme": "Growth", "action_items": ["Book venue"]}`
	}}
	res := newService(model).Extract(context.Background(), domain.Request{Text: "doc"})
	assert.Equal(t, domain.ExtractionResult{
		Success: true,
		KeyPoints: []domain.KeyPoint{
			{Point: "Ship v2", Importance: domain.LevelHigh},
			{Point: "Hire", Importance: domain.LevelMedium},
		},
		OverallTheme: "Growth",
		ActionItems:  []string{"Book venue"},
	}, res)
}

func TestExtract_FallbackOnDegradedReply(t *testing.T) {
	text := "Revenue grew by twelve percent this quarter. Churn dropped for the third month in a row."
	res := newService(&scripted{reply: func(string, string) string { return "I cannot help with that." }}).Extract(context.Background(), domain.Request{Text: text})
	assert.True(t, res.Success)
	assert.Equal(t, fallback.GenericTheme, res.OverallTheme)
	assert.Equal(t, []domain.KeyPoint{
		{Point: "Revenue grew by twelve percent this quarter", Importance: domain.LevelMedium},
		{Point: "Churn dropped for the third month in a row", Importance: domain.LevelMedium},
	}, res.KeyPoints)
	assert.Equal(t, []string{}, res.ActionItems)
}

func TestExtract_FallsBackWithoutUsablePoints(t *testing.T) {
	text := "Revenue grew by twelve percent this quarter. Churn dropped for the third month in a row."
	replies := []string{
		`{"key_points": "oops"}`,
		`{"key_points": []}`,
		`{"key_points": [{"importance": "high"}, ""]}`,
	}
	for _, reply := range replies {
		t.Run(reply, func(t *testing.T) {
			res := newService(&scripted{reply: func(string, string) string { return reply }}).Extract(context.Background(), domain.Request{Text: text})
			assert.True(t, res.Success)
			assert.Equal(t, fallback.GenericTheme, res.OverallTheme)
			require.Len(t, res.KeyPoints, 2)
			assert.Equal(t, "Revenue grew by twelve percent this quarter", res.KeyPoints[0].Point)
		})
	}
}

func TestExtract_BlankThemeGetsDefault(t *testing.T) {
	model := &scripted{reply: func(string, string) string { return `{"key_points": ["Ship v2"]}` }}
	res := newService(model).Extract(context.Background(), domain.Request{Text: "doc"})
	assert.Equal(t, domain.ExtractionResult{
		Success:      true,
		KeyPoints:    []domain.KeyPoint{{Point: "Ship v2", Importance: domain.LevelMedium}},
		OverallTheme: fallback.GenericTheme,
		ActionItems:  []string{},
	}, res)
}

func TestExtract_Panic(t *testing.T) {
	res := newService(&scripted{reply: func(string, string) string { panic("bad") }}).Extract(context.Background(), domain.Request{Text: "doc"})
	assert.False(t, res.Success)
	assert.Equal(t, "Error: bad", res.OverallTheme)
	assert.NotNil(t, res.KeyPoints)
	assert.NotNil(t, res.ActionItems)
}

func TestNilModelAndRetriever(t *testing.T) {
	s := New(nil, nil, nil, Config{}, quiet, nil)
	res := s.Ask(context.Background(), domain.Request{Text: "A short document about nothing much at all.", Question: "q"})
	assert.True(t, res.Success)
	assert.Equal(t, domain.LevelLow, res.Confidence)
	assert.Len(t, s.Simplify(context.Background(), domain.Request{Text: "x"}).Pages, 1)
}
