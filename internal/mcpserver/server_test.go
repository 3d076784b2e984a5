package mcpserver

import (
	"context"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing/internal/domain"
)

type fakeFlows struct {
	last domain.Request
}

func (f *fakeFlows) Simplify(_ context.Context, req domain.Request) domain.SimplifyResult {
	f.last = req
	return domain.SimplifyResult{Success: true, Pages: []domain.SimplifiedPage{{PageNumber: 1}}}
}

func (f *fakeFlows) Ask(_ context.Context, req domain.Request) domain.AnswerResult {
	f.last = req
	return domain.AnswerResult{Success: true, Answer: "42", Confidence: domain.LevelHigh}
}

func (f *fakeFlows) Summarize(_ context.Context, req domain.Request) domain.SummaryResult {
	f.last = req
	return domain.SummaryResult{Success: true, Summary: "short", WordCount: 1, KeyTopics: []string{}}
}

func (f *fakeFlows) Extract(_ context.Context, req domain.Request) domain.ExtractionResult {
	f.last = req
	return domain.ExtractionResult{Success: true, OverallTheme: "theme", KeyPoints: []domain.KeyPoint{}, ActionItems: []string{}}
}

func TestHandlers(t *testing.T) {
	ctx := context.Background()
	f := &fakeFlows{}
	s := NewServer(f)

	t.Run("simplify parses audience", func(t *testing.T) {
		_, out, err := s.handleSimplify(ctx, nil, SimplifyInput{Text: "doc", Audience: "INTERN", UserID: "u"})
		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, domain.Request{Text: "doc", Audience: domain.AudienceIntern, UserID: "u"}, f.last)
	})

	t.Run("ask requires question", func(t *testing.T) {
		_, _, err := s.handleAsk(ctx, nil, AskInput{Text: "doc", Question: "  "})
		assert.ErrorIs(t, err, errNoQuestion)

		_, out, err := s.handleAsk(ctx, nil, AskInput{Text: "doc", Question: "why"})
		require.NoError(t, err)
		assert.Equal(t, "42", out.Answer)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, _, err := s.handleSimplify(ctx, nil, SimplifyInput{})
		assert.ErrorIs(t, err, errNoText)
		_, _, err = s.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, errNoText)
		_, _, err = s.handleSummarize(ctx, nil, TextInput{Text: "\t"})
		assert.ErrorIs(t, err, errNoText)
		_, _, err = s.handleExtract(ctx, nil, TextInput{})
		assert.ErrorIs(t, err, errNoText)
	})

	t.Run("summarize and extract", func(t *testing.T) {
		_, sum, err := s.handleSummarize(ctx, nil, TextInput{Text: "doc"})
		require.NoError(t, err)
		assert.Equal(t, "short", sum.Summary)

		_, ext, err := s.handleExtract(ctx, nil, TextInput{Text: "doc", UserID: "x"})
		require.NoError(t, err)
		assert.Equal(t, "theme", ext.OverallTheme)
		assert.Equal(t, "x", f.last.UserID)
	})
}

func TestListTools(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&fakeFlows{})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ask", "extract", "simplify", "summarize"}, names)
}
