package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wayfarer-ai/wayfarer"
	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/llms"
	"github.com/wayfarer-ai/wayfarer/pkg/logger"
	"github.com/wayfarer-ai/wayfarer/pkg/observability"
	"github.com/wayfarer-ai/wayfarer/pkg/orchestrator"
	"github.com/wayfarer-ai/wayfarer/pkg/protocol"
	"github.com/wayfarer-ai/wayfarer/pkg/server"
	"github.com/wayfarer-ai/wayfarer/pkg/tools"
	"github.com/wayfarer-ai/wayfarer/pkg/trip"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Chat     ChatCmd     `cmd:"" help:"Plan a trip interactively from the terminal."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"wayfarer.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, text, json)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(wayfarer.GetVersion())
	return nil
}

// ValidateCmd checks a configuration file without starting anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if _, err := config.Load(cli.Config); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Printf("%s: OK\n", cli.Config)
	return nil
}

// ServeCmd runs the HTTP server, rebuilding on config changes when --watch
// is set.
type ServeCmd struct {
	Watch bool `help:"Watch the config file and restart on changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	var reload <-chan struct{}
	if c.Watch {
		ch, err := config.Watch(ctx, cli.Config)
		if err != nil {
			return err
		}
		reload = ch
	}

	for {
		restart, err := c.serveOnce(ctx, cli, reload)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
		slog.Info("config changed, restarting")
	}
}

// serveOnce builds the runtime from the current config and serves until
// shutdown or a config change.
func (c *ServeCmd) serveOnce(ctx context.Context, cli *CLI, reload <-chan struct{}) (restart bool, err error) {
	rt, err := buildRuntime(cli)
	if err != nil {
		return false, err
	}
	defer rt.Close()

	srv := server.New(rt.cfg.Server, rt.orch,
		server.WithStore(rt.store),
		server.WithMetrics(rt.metrics),
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case err := <-serveErr:
		return false, err
	case <-ctx.Done():
	case _, ok := <-reload:
		restart = ok
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
	<-serveErr
	return restart, nil
}

// ChatCmd plans a trip from the terminal, carrying context across turns.
type ChatCmd struct {
	Message string `arg:"" optional:"" help:"First message. Empty starts an interactive session."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	rt, err := buildRuntime(cli)
	if err != nil {
		return err
	}
	defer rt.Close()

	scanner := bufio.NewScanner(os.Stdin)
	turnContext := map[string]interface{}{}
	message := c.Message

	for {
		if message == "" {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			message = strings.TrimSpace(scanner.Text())
			if message == "" || message == "exit" || message == "quit" {
				return nil
			}
		}

		events, err := rt.orch.Run(ctx, orchestrator.RunInput{
			Message: message,
			Context: turnContext,
		})
		if err != nil {
			return err
		}

		var lastRole string
		done := false
		for ev := range events {
			switch ev.Type {
			case orchestrator.EventQuestion:
				fmt.Printf("\n%s\n", ev.Question.Text)
				turnContext = ev.Context
			case orchestrator.EventChunk:
				if ev.Role != lastRole {
					fmt.Printf("\n\n## %s\n", ev.Role)
					lastRole = ev.Role
				}
				fmt.Print(ev.Content)
			case orchestrator.EventError:
				fmt.Fprintf(os.Stderr, "\nerror: %s\n", ev.Content)
			case orchestrator.EventDone:
				fmt.Println()
				turnContext = ev.Context
				done = true
			}
		}
		if done && c.Message != "" {
			return nil
		}
		message = ""
	}
}

// runtime bundles the components a command needs.
type runtime struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	store   trip.Store
	metrics *observability.Metrics
}

func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("closing trip store", "error", err)
		}
	}
}

func buildRuntime(cli *CLI) (*runtime, error) {
	if err := initLogging(cli); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry := llms.NewLLMRegistry()
	for name, llmCfg := range cfg.LLMs {
		if _, err := registry.CreateFromConfig(name, &llmCfg); err != nil {
			return nil, fmt.Errorf("failed to create LLM %q: %w", name, err)
		}
	}
	provider, err := registry.GetLLM(cfg.Orchestrator.LLM)
	if err != nil {
		return nil, fmt.Errorf("orchestrator LLM %q: %w", cfg.Orchestrator.LLM, err)
	}

	metrics := observability.NewMetrics()

	manager := protocol.NewManager(
		protocol.WithClientInfo(protocol.ClientInfo{Name: "wayfarer", Version: wayfarer.Version}),
		protocol.WithObserver(func(ev protocol.Event) {
			switch ev.Type {
			case protocol.EventToolCompleted:
				metrics.RecordToolCall(ev.Server, ev.Tool, ev.Duration, false)
			case protocol.EventToolFailed:
				metrics.RecordToolCall(ev.Server, ev.Tool, ev.Duration, true)
			}
		}),
	)
	if err := tools.Register(manager, cfg.Services); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	var store trip.Store
	if cfg.Storage.Type == "sqlite" {
		store, err = trip.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open trip store: %w", err)
		}
	}

	orch, err := orchestrator.New(provider, manager, cfg.Orchestrator,
		orchestrator.WithStore(store),
		orchestrator.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, orch: orch, store: store, metrics: metrics}, nil
}

func initLogging(cli *CLI) error {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	output := os.Stderr
	if cli.LogFile != "" {
		f, _, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			return err
		}
		output = f
	}
	logger.Init(level, output, cli.LogFormat)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("wayfarer"),
		kong.Description("wayfarer - agent-orchestrated trip planning runtime"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
