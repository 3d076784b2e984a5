package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"briefing/internal/domain"
)

// Flows is the TUI-facing subset of the orchestrator.
type Flows interface {
	Ask(ctx context.Context, req domain.Request) domain.AnswerResult
	Summarize(ctx context.Context, req domain.Request) domain.SummaryResult
}

type summaryMsg domain.SummaryResult

type answerMsg struct {
	question string
	result   domain.AnswerResult
}

type exchange struct {
	question string
	answer   domain.AnswerResult
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	flows    Flows
	title    string
	text     string
	userID   string
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	summary  string
	status   string
	cursor   int
	ready    bool
	busy     bool
}

// New creates a TUI over one loaded document.
func New(ctx context.Context, flows Flows, title, text, userID string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		flows:    flows,
		title:    title,
		text:     text,
		userID:   userID,
		input:    ti,
		viewport: vp,
		summary:  "Summarizing...",
		status:   "Loaded. Type a question.",
	}
}

// Init starts the cursor blink and the document summary.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.summarize()) }

func (m Model) summarize() tea.Cmd {
	return func() tea.Msg {
		return summaryMsg(m.flows.Summarize(m.ctx, domain.Request{Text: m.text, UserID: m.userID}))
	}
}

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{question: q, result: m.flows.Ask(m.ctx, domain.Request{Text: m.text, Question: q, UserID: m.userID})}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case summaryMsg:
		m.summary = msg.Summary
		if len(msg.KeyTopics) > 0 {
			m.summary += "  [" + strings.Join(msg.KeyTopics, ", ") + "]"
		}
		return m, nil
	case answerMsg:
		m.busy = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.result})
		m.cursor = len(m.history) - 1
		m.status = fmt.Sprintf("Answered %q (confidence: %s)", msg.question, msg.result.Confidence)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down":
			if len(m.history) > 0 {
				m.cursor = (m.cursor + 1) % len(m.history)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if len(m.history) > 0 {
				m.cursor = (m.cursor - 1 + len(m.history)) % len(m.history)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Briefing: " + m.title)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.history) == 0 {
		return "No answers yet."
	}
	ex := m.history[m.cursor]
	title := fmt.Sprintf("Answer %d/%d  confidence=%s", m.cursor+1, len(m.history), ex.answer.Confidence)
	body := "Q: " + ex.question + "\n\n" + highlightBestSentence(ex.answer.Answer, ex.question)
	if ex.answer.RelevantExcerpt != "" {
		body += "\n\n" + excerptStyle.Render("“"+ex.answer.RelevantExcerpt+"”")
	}
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	excerptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence renders the sentence sharing the most words with
// query in the highlight style.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
