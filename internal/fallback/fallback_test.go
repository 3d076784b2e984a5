package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing/internal/domain"
)

const report = "## Sprint 12 status report\nThe payments team finished the checkout redesign ahead of schedule. Load testing found two slow queries in the order service! Both were fixed. The mobile release slipped by one week because of store review delays."

func TestPage(t *testing.T) {
	p := New(nil).Page(report, 2, domain.AudienceExecutive)
	assert.Equal(t, 2, p.PageNumber)
	assert.Equal(t, "Sprint 12 status report", p.Title)
	assert.Equal(t, PageImagePrompt, p.ImagePrompt)
	assert.True(t, strings.HasPrefix(p.SimplifiedText, "Here's what this section is about in simple terms:\n\n"))
	assert.Contains(t, p.SimplifiedText, "• ## Sprint 12 status report\nThe payments team finished the checkout redesign ahead of schedule.\n")
	assert.Contains(t, p.SimplifiedText, "• Load testing found two slow queries in the order service.\n")
	assert.NotContains(t, p.SimplifiedText, "• Both were fixed")
	assert.True(t, strings.HasSuffix(p.SimplifiedText, "\n📌 This section is written for a executive audience."))
}

func TestPage_ShortText(t *testing.T) {
	p := New(nil).Page("- ok", 5, "nobody")
	assert.Equal(t, "ok", p.Title)
	assert.Contains(t, p.SimplifiedText, "• - ok...\n")
	assert.Contains(t, p.SimplifiedText, "for a manager audience.")

	p = New(nil).Page("### 1.", 3, domain.AudienceIntern)
	assert.Equal(t, "Section 3 Summary", p.Title)
}

func TestPage_LongTitleTruncated(t *testing.T) {
	p := New(nil).Page(strings.Repeat("word ", 40), 1, domain.AudienceClient)
	assert.LessOrEqual(t, len([]rune(p.Title)), 80)
}

func TestPlaceholderPage(t *testing.T) {
	p := PlaceholderPage(9)
	assert.Equal(t, domain.SimplifiedPage{PageNumber: 9, Title: "Section 9", SimplifiedText: PlaceholderText, ImagePrompt: PlaceholderImagePrompt}, p)
}

func TestAnswer(t *testing.T) {
	text := strings.Repeat("a", 600)
	a := New(nil).Answer(text)
	assert.True(t, a.Success)
	assert.Equal(t, domain.LevelLow, a.Confidence)
	assert.Contains(t, a.Answer, strings.Repeat("a", 500)+"...")
	assert.NotContains(t, a.Answer, strings.Repeat("a", 501))
	assert.Equal(t, strings.Repeat("a", 200), a.RelevantExcerpt)
}

func TestSummary(t *testing.T) {
	s := New(nil).Summary(report)
	assert.True(t, s.Success)
	assert.Equal(t, "## Sprint 12 status report\nThe payments team finished the checkout redesign ahead of schedule. Load testing found two slow queries in the order service.", s.Summary)
	assert.Equal(t, len(strings.Fields(s.Summary)), s.WordCount)
	assert.Len(t, s.KeyTopics, 3)

	short := New(nil).Summary("Tiny. Bits.")
	assert.Equal(t, "Tiny. Bits.", short.Summary)
	assert.NotNil(t, short.KeyTopics)
}

func TestKeyPoints(t *testing.T) {
	e := New(nil).KeyPoints(report)
	assert.True(t, e.Success)
	assert.Equal(t, GenericTheme, e.OverallTheme)
	assert.NotNil(t, e.ActionItems)
	require.Len(t, e.KeyPoints, 3)
	for _, p := range e.KeyPoints {
		assert.Equal(t, domain.LevelMedium, p.Importance)
	}

	e = New(nil).KeyPoints("short")
	assert.Equal(t, []domain.KeyPoint{{Point: "short", Importance: domain.LevelMedium}}, e.KeyPoints)
}

func TestKeyPoints_AtMostSeven(t *testing.T) {
	text := strings.Repeat("This sentence is comfortably long enough. ", 20)
	assert.Len(t, New(nil).KeyPoints(text).KeyPoints, 7)
}

func TestSummary_PanicYieldsPlaceholder(t *testing.T) {
	var g Generator
	assert.NotPanics(t, func() {
		s := g.Summary("Some reasonably long sentence goes here.")
		assert.Equal(t, PlaceholderText, s.Summary)
		assert.True(t, s.Success)
	})
}
