package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing/internal/domain"
)

type fakeFlows struct{}

func (fakeFlows) Ask(_ context.Context, req domain.Request) domain.AnswerResult {
	return domain.AnswerResult{Success: true, Answer: "Launch is in March. Budget is fine.", Confidence: domain.LevelHigh, RelevantExcerpt: "moved to March"}
}

func (fakeFlows) Summarize(context.Context, domain.Request) domain.SummaryResult {
	return domain.SummaryResult{Success: true, Summary: "A launch plan.", WordCount: 3, KeyTopics: []string{"launch"}}
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("The cat sat. The launch moved to March. Done.", "when is the launch")
	assert.Contains(t, out, "The cat sat.")
	assert.Contains(t, out, "Done.")
	assert.Contains(t, out, "The launch moved to March.")

	assert.Equal(t, "", highlightBestSentence("", "q"))
	assert.Contains(t, highlightBestSentence("No punctuation", "punctuation"), "No punctuation")
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("Launch date March")
	assert.Equal(t, 2, tokenOverlapScore(q, "the launch moved to march, launch!"))
	assert.Equal(t, 0, tokenOverlapScore(q, "nothing here"))
}

func TestAskFlow(t *testing.T) {
	m := New(context.Background(), fakeFlows{}, "plan.txt", "doc text", "u")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)
	assert.Contains(t, m.View(), "Briefing: plan.txt")

	next, _ = m.Update(summaryMsg(fakeFlows{}.Summarize(context.Background(), domain.Request{})))
	m = next.(Model)
	assert.Equal(t, "A launch plan.  [launch]", m.summary)

	m.input.SetValue("when is launch?")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	require.Len(t, m.history, 1)
	assert.Contains(t, m.status, "confidence: high")
	rendered := m.renderCurrent()
	assert.Contains(t, rendered, "Answer 1/1")
	assert.Contains(t, rendered, "Q: when is launch?")
	assert.True(t, strings.Contains(rendered, "moved to March"))
}
