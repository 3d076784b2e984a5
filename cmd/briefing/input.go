package main

import (
	"errors"
	"strings"

	"briefing/internal/domain"
)

var (
	errNoText     = errors.New("no text provided")
	errNoQuestion = errors.New("no question provided")
)

// validateRequest rejects blank text, and a blank question for Ask.
func validateRequest(task domain.Task, req domain.Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return errNoText
	}
	if task == domain.TaskAsk && strings.TrimSpace(req.Question) == "" {
		return errNoQuestion
	}
	return nil
}
