// Package server exposes the document flows over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"briefing/internal/domain"
	"briefing/internal/metrics"
)

const (
	ServiceName = "nlp-engine"
	Version     = "3.0.0"
)

var endpoints = []string{"/process", "/ask", "/summarize", "/extract"}

type processRequest struct {
	Text          string `json:"text"`
	AudienceLevel string `json:"audience_level"`
	UserID        string `json:"user_id"`
}

type askRequest struct {
	Text     string `json:"text"`
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

type textRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type healthResponse struct {
	Status    string   `json:"status"`
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Model     string   `json:"model"`
	Endpoints []string `json:"endpoints"`
}

type Server struct {
	echo    *echo.Echo
	flows   domain.Orchestrator
	model   string
	logger  *log.Logger
	metrics *metrics.Metrics
}

// New builds the HTTP handler. model is reported by /health.
func New(flows domain.Orchestrator, model string, logger *log.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	s := &Server{echo: echo.New(), flows: flows, model: model, logger: logger, metrics: m}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.GET("/health", s.health)
	e.POST("/process", s.process)
	e.POST("/ask", s.ask)
	e.POST("/summarize", s.summarize)
	e.POST("/extract", s.extract)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]any{"error": msg})
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   ServiceName,
		Version:   Version,
		Model:     s.model,
		Endpoints: endpoints,
	})
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func (s *Server) process(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if blank(req.Text) {
		return echo.NewHTTPError(http.StatusBadRequest, "No text provided")
	}
	res := s.flows.Simplify(c.Request().Context(), domain.Request{
		Text:     req.Text,
		Audience: domain.ParseAudience(req.AudienceLevel),
		UserID:   req.UserID,
	})
	return c.JSON(http.StatusOK, res)
}

func (s *Server) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if blank(req.Text) {
		return echo.NewHTTPError(http.StatusBadRequest, "No document text provided")
	}
	if blank(req.Question) {
		return echo.NewHTTPError(http.StatusBadRequest, "No question provided")
	}
	res := s.flows.Ask(c.Request().Context(), domain.Request{Text: req.Text, Question: req.Question, UserID: req.UserID})
	return c.JSON(http.StatusOK, res)
}

func (s *Server) summarize(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if blank(req.Text) {
		return echo.NewHTTPError(http.StatusBadRequest, "No text provided")
	}
	return c.JSON(http.StatusOK, s.flows.Summarize(c.Request().Context(), domain.Request{Text: req.Text}))
}

func (s *Server) extract(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if blank(req.Text) {
		return echo.NewHTTPError(http.StatusBadRequest, "No text provided")
	}
	return c.JSON(http.StatusOK, s.flows.Extract(c.Request().Context(), domain.Request{Text: req.Text, UserID: req.UserID}))
}
