package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"briefing/internal/domain"
	"briefing/internal/mcpserver"
	"briefing/internal/server"
	"briefing/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	root := &cobra.Command{
		Use:           "briefing",
		Short:         "Audience-aware document simplification, Q&A, summaries and key points",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config file (uses ./config.yaml or ~/.config/briefing/config.yaml if not provided)")

	root.AddCommand(
		serveCMD(&cfgPath),
		mcpCMD(&cfgPath),
		tuiCMD(&cfgPath),
		simplifyCMD(&cfgPath),
		askCMD(&cfgPath),
		summarizeCMD(&cfgPath),
		extractCMD(&cfgPath),
	)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func withApp(cfgPath *string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := assemble(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				return server.New(a.service, a.cfg.Model.Model, nil, a.metrics).Run(ctx, addr)
			})
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return serve
}

func mcpCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the four flows as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries JSON-RPC
			log.SetOutput(os.Stderr)
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				return mcpserver.NewServer(a.service).Run(ctx)
			})
		},
	}
}

func tuiCMD(cfgPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "tui <file>",
		Short: "Ask questions about a document interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if err := validateRequest(domain.TaskSummarize, domain.Request{Text: text}); err != nil {
				return err
			}
			return withApp(cfgPath, func(ctx context.Context, a *app) error {
				m := tui.New(ctx, a.service, filepath.Base(args[0]), text, userID)
				_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id scoping the persisted index")
	return cmd
}

func simplifyCMD(cfgPath *string) *cobra.Command {
	var userID, audience string
	cmd := &cobra.Command{
		Use:   "simplify <file>",
		Short: "Rewrite a document into audience-tuned pages",
		Args:  cobra.ExactArgs(1),
		RunE: oneShot(cfgPath, domain.TaskSimplify,
			func(text string) domain.Request {
				return domain.Request{Text: text, Audience: domain.ParseAudience(audience), UserID: userID}
			},
			func(ctx context.Context, a *app, req domain.Request) any { return a.service.Simplify(ctx, req) }),
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id scoping the persisted index")
	cmd.Flags().StringVarP(&audience, "audience", "a", string(domain.AudienceManager), "executive, manager, client or intern")
	return cmd
}

func askCMD(cfgPath *string) *cobra.Command {
	var userID, question string
	cmd := &cobra.Command{
		Use:   "ask <file>",
		Short: "Answer a question about a document",
		Args:  cobra.ExactArgs(1),
		RunE: oneShot(cfgPath, domain.TaskAsk,
			func(text string) domain.Request {
				return domain.Request{Text: text, Question: question, UserID: userID}
			},
			func(ctx context.Context, a *app, req domain.Request) any { return a.service.Ask(ctx, req) }),
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id scoping the persisted index")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func summarizeCMD(cfgPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Summarize a document",
		Args:  cobra.ExactArgs(1),
		RunE: oneShot(cfgPath, domain.TaskSummarize,
			func(text string) domain.Request { return domain.Request{Text: text, UserID: userID} },
			func(ctx context.Context, a *app, req domain.Request) any { return a.service.Summarize(ctx, req) }),
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id scoping the persisted index")
	return cmd
}

func extractCMD(cfgPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract key points and action items from a document",
		Args:  cobra.ExactArgs(1),
		RunE: oneShot(cfgPath, domain.TaskExtract,
			func(text string) domain.Request { return domain.Request{Text: text, UserID: userID} },
			func(ctx context.Context, a *app, req domain.Request) any { return a.service.Extract(ctx, req) }),
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id scoping the persisted index")
	return cmd
}

type flowFunc func(ctx context.Context, a *app, req domain.Request) any

// oneShot runs a flow over the file named by the first argument and prints
// the result as indented JSON. Blank input is rejected before anything is
// assembled.
func oneShot(cfgPath *string, task domain.Task, build func(text string) domain.Request, flow flowFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		text, err := readDocument(args[0])
		if err != nil {
			return err
		}
		req := build(text)
		if err := validateRequest(task, req); err != nil {
			return err
		}
		return withApp(cfgPath, func(ctx context.Context, a *app) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(flow(ctx, a, req))
		})
	}
}

func readDocument(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
