package service

import (
	"context"
	"fmt"

	"briefing/internal/domain"
	"briefing/internal/fallback"
	"briefing/internal/parser"
	"briefing/internal/prompt"
	"briefing/internal/textutil"
)

// task describes one model round trip: the prompt, how to accept the parsed
// reply and what to return when the reply is unusable.
type task[T any] struct {
	name      domain.Task
	contextID int
	prompt    string
	accept    func(parser.Parsed) (T, bool)
	fallback  func() T
}

// run is the shared prompt -> invoke -> parse -> accept -> fallback pipeline.
func run[T any](ctx context.Context, s *Service, t task[T]) T {
	if s.model != nil {
		if raw := s.model.Invoke(ctx, t.prompt, prompt.System(t.name)); raw != "" {
			parsed := parser.Parse(raw, t.contextID)
			if parsed.Degraded {
				s.logger.Printf("%s: %v for context %d, keeping raw reply", t.name, domain.ErrParse, t.contextID)
			}
			if res, ok := t.accept(parsed); ok {
				return res
			}
			s.logger.Printf("%s: reply for context %d lacked required fields", t.name, t.contextID)
		}
	}
	s.metrics.Fallback(string(t.name))
	return t.fallback()
}

func acceptPage(pageNumber int) func(parser.Parsed) (domain.SimplifiedPage, bool) {
	return func(p parser.Parsed) (domain.SimplifiedPage, bool) {
		if !p.Has("simplified_text") {
			return domain.SimplifiedPage{}, false
		}
		page := domain.SimplifiedPage{
			PageNumber:     pageNumber,
			Title:          p.String("title"),
			SimplifiedText: p.String("simplified_text"),
			ImagePrompt:    p.String("image_prompt"),
		}
		if page.Title == "" {
			page.Title = fmt.Sprintf("Section %d", pageNumber)
		}
		if page.ImagePrompt == "" {
			page.ImagePrompt = parser.DegradedImagePrompt
		}
		return page, true
	}
}

func acceptAnswer(p parser.Parsed) (domain.AnswerResult, bool) {
	switch {
	case p.Has("answer"):
		return domain.AnswerResult{
			Success:         true,
			Answer:          p.String("answer"),
			Confidence:      domain.NormalizeLevel(p.String("confidence")),
			RelevantExcerpt: p.String("relevant_excerpt"),
		}, true
	case p.Has("simplified_text"):
		return domain.AnswerResult{
			Success:    true,
			Answer:     p.String("simplified_text"),
			Confidence: domain.LevelMedium,
		}, true
	}
	return domain.AnswerResult{}, false
}

func acceptSummary(p parser.Parsed) (domain.SummaryResult, bool) {
	switch {
	case p.Has("summary"):
		res := domain.SummaryResult{Success: true, Summary: p.String("summary"), KeyTopics: p.Strings("key_topics")}
		if n, ok := p.Int("word_count"); ok {
			res.WordCount = n
		} else {
			res.WordCount = textutil.WordCount(res.Summary)
		}
		return res, true
	case p.Has("simplified_text"):
		text := p.String("simplified_text")
		return domain.SummaryResult{Success: true, Summary: text, WordCount: textutil.WordCount(text), KeyTopics: []string{}}, true
	}
	return domain.SummaryResult{}, false
}

func acceptKeyPoints(p parser.Parsed) (domain.ExtractionResult, bool) {
	if !p.Has("key_points") {
		return domain.ExtractionResult{}, false
	}
	points := []domain.KeyPoint{}
	for _, o := range p.Objects("key_points") {
		if pt := o.String("point"); pt != "" {
			points = append(points, domain.KeyPoint{Point: pt, Importance: domain.NormalizeLevel(o.String("importance"))})
		}
	}
	// Plain string lists are accepted as medium-importance points.
	for _, s := range p.Strings("key_points") {
		if s != "" {
			points = append(points, domain.KeyPoint{Point: s, Importance: domain.LevelMedium})
		}
	}
	if len(points) == 0 {
		return domain.ExtractionResult{}, false
	}
	res := domain.ExtractionResult{
		Success:      true,
		KeyPoints:    points,
		OverallTheme: p.String("overall_theme"),
		ActionItems:  p.Strings("action_items"),
	}
	if res.OverallTheme == "" {
		res.OverallTheme = fallback.GenericTheme
	}
	return res, true
}
