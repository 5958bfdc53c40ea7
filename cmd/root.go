package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gennadis/streamchat/internal/auth"
	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/client"
	"github.com/gennadis/streamchat/internal/config"
	"github.com/gennadis/streamchat/internal/gemini"
	"github.com/gennadis/streamchat/internal/logging"
	"github.com/gennadis/streamchat/internal/readiness"
	"github.com/gennadis/streamchat/internal/reconcile"
	"github.com/gennadis/streamchat/internal/session"
	"github.com/gennadis/streamchat/internal/tui"
)

type flags struct {
	envFile    string
	configFile string
	backend    string
	model      string
	logLevel   string
	logFile    string
}

func newRootCmd() *cobra.Command {
	f := flags{}

	cmd := &cobra.Command{
		Use:           "gigachatui",
		Short:         "Chat with GigaChat or Gemini in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.envFile, f.configFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, f, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer logFile.Close()

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "file with CLIENT_ID, CLIENT_SECRET and other variables")
	cmd.Flags().StringVar(&f.configFile, "config", "", "optional YAML config file")
	cmd.Flags().StringVar(&f.backend, "backend", config.BackendGigaChat, "completion backend: gigachat or gemini")
	cmd.Flags().StringVar(&f.model, "model", "", "model to start with")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "where to write logs")
	return cmd
}

func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	if cmd.Flags().Changed("backend") {
		cfg.Backend = f.backend
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = f.model
		cfg.GeminiModel = f.model
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = f.logFile
	}
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	b, err := newBackend(ctx, g, cfg)
	if err != nil {
		return err
	}

	gate := readiness.NewGate()
	observer := tui.NewObserver()
	conv := reconcile.New(session.NewStore(), gate, b.completer, observer, b.models[0])

	program := tea.NewProgram(tui.NewModel(ctx, conv, b.models), tea.WithAltScreen(), tea.WithContext(ctx))
	observer.Attach(program)

	g.Go(func() error {
		return ignoreCanceled(gate.Poll(ctx, cfg.ReadyPollInterval, b.ready))
	})
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	slog.Info("gigachatui started", slog.String("backend", cfg.Backend), slog.String("model", string(b.models[0])))
	return g.Wait()
}

type backend struct {
	completer reconcile.Completer
	ready     func() bool
	models    []chat.ChatModel
}

func newBackend(ctx context.Context, g *errgroup.Group, cfg *config.Config) (*backend, error) {
	switch cfg.Backend {
	case config.BackendGigaChat:
		authHandler := auth.NewAuthenticationHandler(auth.Options{
			AuthURL:        cfg.AuthURL,
			Scope:          cfg.Scope,
			ClientID:       cfg.ClientID,
			ClientSecret:   cfg.ClientSecret,
			RotateInterval: cfg.RotateEvery,
		})
		g.Go(func() error {
			return ignoreCanceled(authHandler.Run(ctx))
		})

		gigaChatClient := client.NewClient(*cfg, authHandler, nil)
		return &backend{
			completer: gigaChatClient,
			ready:     gigaChatClient.Ready,
			models:    gigaChatModels(chat.ChatModel(cfg.Model)),
		}, nil

	case config.BackendGemini:
		geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return &backend{
			completer: geminiClient,
			ready:     geminiClient.Ready,
			models:    []chat.ChatModel{chat.ChatModel(cfg.GeminiModel), "gemini-2.5-pro"},
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// gigaChatModels lists the selectable models starting with preferred
func gigaChatModels(preferred chat.ChatModel) []chat.ChatModel {
	models := []chat.ChatModel{chat.ChatModelLite, chat.ChatModelPro, chat.ChatModelMax}
	if preferred == "" {
		return models
	}
	out := []chat.ChatModel{preferred}
	for _, m := range models {
		if m != preferred {
			out = append(out, m)
		}
	}
	return out
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
