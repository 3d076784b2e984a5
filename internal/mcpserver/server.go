// Package mcpserver exposes the document flows as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"briefing/internal/domain"
)

const Version = "0.1.0"

var (
	errNoText     = errors.New("no text provided")
	errNoQuestion = errors.New("no question provided")
)

type SimplifyInput struct {
	Text     string `json:"text" jsonschema:"plain text of the document to simplify"`
	Audience string `json:"audience,omitempty" jsonschema:"one of executive, manager, client, intern (default manager)"`
	UserID   string `json:"user_id,omitempty" jsonschema:"owner of the document index, default is default"`
}

type AskInput struct {
	Text     string `json:"text" jsonschema:"plain text of the document"`
	Question string `json:"question" jsonschema:"question to answer from the document"`
	UserID   string `json:"user_id,omitempty" jsonschema:"owner of the document index"`
}

type TextInput struct {
	Text   string `json:"text" jsonschema:"plain text of the document"`
	UserID string `json:"user_id,omitempty" jsonschema:"owner of the document index"`
}

type Server struct {
	flows  domain.Orchestrator
	server *mcp.Server
}

func NewServer(flows domain.Orchestrator) *Server {
	s := &Server{
		flows:  flows,
		server: mcp.NewServer(&mcp.Implementation{Name: "briefing", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "simplify",
		Description: "Rewrite a document page by page for a target audience",
	}, s.handleSimplify)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the given document",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize",
		Description: "Summarize a document in one short paragraph",
	}, s.handleSummarize)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract",
		Description: "Extract key points, the overall theme and action items from a document",
	}, s.handleExtract)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func (s *Server) handleSimplify(ctx context.Context, _ *mcp.CallToolRequest, in SimplifyInput) (*mcp.CallToolResult, domain.SimplifyResult, error) {
	if blank(in.Text) {
		return nil, domain.SimplifyResult{}, errNoText
	}
	res := s.flows.Simplify(ctx, domain.Request{Text: in.Text, Audience: domain.ParseAudience(in.Audience), UserID: in.UserID})
	return nil, res, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, domain.AnswerResult, error) {
	if blank(in.Text) {
		return nil, domain.AnswerResult{}, errNoText
	}
	if blank(in.Question) {
		return nil, domain.AnswerResult{}, errNoQuestion
	}
	return nil, s.flows.Ask(ctx, domain.Request{Text: in.Text, Question: in.Question, UserID: in.UserID}), nil
}

func (s *Server) handleSummarize(ctx context.Context, _ *mcp.CallToolRequest, in TextInput) (*mcp.CallToolResult, domain.SummaryResult, error) {
	if blank(in.Text) {
		return nil, domain.SummaryResult{}, errNoText
	}
	return nil, s.flows.Summarize(ctx, domain.Request{Text: in.Text}), nil
}

func (s *Server) handleExtract(ctx context.Context, _ *mcp.CallToolRequest, in TextInput) (*mcp.CallToolResult, domain.ExtractionResult, error) {
	if blank(in.Text) {
		return nil, domain.ExtractionResult{}, errNoText
	}
	return nil, s.flows.Extract(ctx, domain.Request{Text: in.Text, UserID: in.UserID}), nil
}
