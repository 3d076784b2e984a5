// Package service orchestrates the four document flows: simplify, ask,
// summarize and extract. No flow returns an error or panics to its caller;
// every failure becomes a degraded but complete result.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"briefing/internal/domain"
	"briefing/internal/fallback"
	"briefing/internal/metrics"
	"briefing/internal/pages"
	"briefing/internal/prompt"
	"briefing/internal/retrieval"
	"briefing/internal/textutil"
)

type Config struct {
	SimplifyTopK   int
	AskTopK        int
	MaxConcurrency int
}

type Service struct {
	retriever *retrieval.Retriever
	segmenter *pages.Segmenter
	model     domain.Generator
	fallback  *fallback.Generator
	cfg       Config
	logger    *log.Logger
	metrics   *metrics.Metrics
}

func New(retriever *retrieval.Retriever, segmenter *pages.Segmenter, model domain.Generator, cfg Config, logger *log.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if segmenter == nil {
		segmenter = pages.NewSegmenter(0, logger)
	}
	if cfg.SimplifyTopK <= 0 {
		cfg.SimplifyTopK = 4
	}
	if cfg.AskTopK <= 0 {
		cfg.AskTopK = 5
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Service{
		retriever: retriever,
		segmenter: segmenter,
		model:     model,
		fallback:  fallback.New(logger),
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}
}

func requestID() string { return uuid.NewString()[:8] }

// Simplify rewrites every page of the document for the audience. Pages are
// processed concurrently and returned in document order; a failed page is
// replaced by its extractive fallback.
func (s *Service) Simplify(ctx context.Context, req domain.Request) (res domain.SimplifyResult) {
	id := requestID()
	start := time.Now()
	defer s.metrics.ObserveFlow(string(domain.TaskSimplify), start)
	audience := domain.ParseAudience(string(req.Audience))
	s.logger.Printf("[%s] simplify: user=%q audience=%s chars=%d", id, req.UserID, audience, textutil.Len(req.Text))

	var segments []string
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[%s] simplify aborted: %v", id, r)
			if len(segments) == 0 {
				segments = []string{req.Text}
			}
			res = domain.SimplifyResult{Success: false, Pages: make([]domain.SimplifiedPage, len(segments))}
			for i, seg := range segments {
				res.Pages[i] = s.fallback.Page(seg, i+1, audience)
			}
		}
	}()

	ix := s.retriever.Index(ctx, req.Text, req.UserID)
	segments = s.segmenter.Segment(req.Text)
	s.logger.Printf("[%s] %d pages, retrieval available=%t", id, len(segments), ix.Available())

	out := make([]domain.SimplifiedPage, len(segments))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, seg := range segments {
		g.Go(func() error {
			n := i + 1
			defer func() {
				if r := recover(); r != nil {
					s.logger.Printf("[%s] page %d failed: %v", id, n, r)
					s.metrics.Fallback(string(domain.TaskSimplify))
					out[i] = s.fallback.Page(seg, n, audience)
				}
			}()
			retrieved := s.retriever.Context(ctx, ix, seg, s.cfg.SimplifyTopK)
			out[i] = run(ctx, s, task[domain.SimplifiedPage]{
				name:      domain.TaskSimplify,
				contextID: n,
				prompt:    prompt.Simplify(seg, retrieved, n, audience),
				accept:    acceptPage(n),
				fallback:  func() domain.SimplifiedPage { return s.fallback.Page(seg, n, audience) },
			})
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Printf("[%s] simplify done in %s", id, time.Since(start).Round(time.Millisecond))
	return domain.SimplifyResult{Success: true, Pages: out}
}

// Ask answers a question from the document, preferring retrieved context.
func (s *Service) Ask(ctx context.Context, req domain.Request) (res domain.AnswerResult) {
	id := requestID()
	start := time.Now()
	defer s.metrics.ObserveFlow(string(domain.TaskAsk), start)
	s.logger.Printf("[%s] ask: user=%q question=%q chars=%d", id, req.UserID, textutil.Truncate(req.Question, 80), textutil.Len(req.Text))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[%s] ask aborted: %v", id, r)
			res = domain.AnswerResult{
				Success:    false,
				Answer:     fmt.Sprintf("An error occurred while processing your question: %v", r),
				Confidence: domain.LevelLow,
			}
		}
	}()

	ix := s.retriever.Index(ctx, req.Text, req.UserID)
	retrieved := s.retriever.Context(ctx, ix, req.Question, s.cfg.AskTopK)
	return run(ctx, s, task[domain.AnswerResult]{
		name:      domain.TaskAsk,
		contextID: 1,
		prompt:    prompt.Ask(req.Question, retrieved, req.Text),
		accept:    acceptAnswer,
		fallback:  func() domain.AnswerResult { return s.fallback.Answer(req.Text) },
	})
}

// Summarize condenses the start of the document into one paragraph.
func (s *Service) Summarize(ctx context.Context, req domain.Request) (res domain.SummaryResult) {
	id := requestID()
	start := time.Now()
	defer s.metrics.ObserveFlow(string(domain.TaskSummarize), start)
	s.logger.Printf("[%s] summarize: chars=%d", id, textutil.Len(req.Text))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[%s] summarize aborted: %v", id, r)
			res = domain.SummaryResult{
				Success:   false,
				Summary:   fmt.Sprintf("Summarization failed: %v", r),
				KeyTopics: []string{},
			}
		}
	}()

	return run(ctx, s, task[domain.SummaryResult]{
		name:      domain.TaskSummarize,
		contextID: 1,
		prompt:    prompt.Summarize(req.Text),
		accept:    acceptSummary,
		fallback:  func() domain.SummaryResult { return s.fallback.Summary(req.Text) },
	})
}

// Extract lists key points, a theme and action items. The index is built
// like in the other flows so the user's stored index stays current.
func (s *Service) Extract(ctx context.Context, req domain.Request) (res domain.ExtractionResult) {
	id := requestID()
	start := time.Now()
	defer s.metrics.ObserveFlow(string(domain.TaskExtract), start)
	s.logger.Printf("[%s] extract: user=%q chars=%d", id, req.UserID, textutil.Len(req.Text))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[%s] extract aborted: %v", id, r)
			res = domain.ExtractionResult{
				Success:      false,
				KeyPoints:    []domain.KeyPoint{},
				OverallTheme: fmt.Sprintf("Error: %v", r),
				ActionItems:  []string{},
			}
		}
	}()

	_ = s.retriever.Index(ctx, req.Text, req.UserID)
	return run(ctx, s, task[domain.ExtractionResult]{
		name:      domain.TaskExtract,
		contextID: 1,
		prompt:    prompt.Extract(req.Text),
		accept:    acceptKeyPoints,
		fallback:  func() domain.ExtractionResult { return s.fallback.KeyPoints(req.Text) },
	})
}
