// Package app assembles the assistant: store, model client, tool
// registry, conversation controller, voice pipeline, reminder
// scheduler, and the dashboard server.
package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/agent"
	"github.com/gmsas95/aria/internal/api"
	"github.com/gmsas95/aria/internal/config"
	"github.com/gmsas95/aria/internal/history"
	"github.com/gmsas95/aria/internal/llm"
	"github.com/gmsas95/aria/internal/persona"
	"github.com/gmsas95/aria/internal/reminders"
	"github.com/gmsas95/aria/internal/store"
	"github.com/gmsas95/aria/internal/voice"
	"github.com/gmsas95/aria/pkg/tools"
)

// App holds the assembled components.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Logger     *zap.Logger
	Controller *agent.Controller
	Voice      *voice.Pipeline
	Reminders  *reminders.Scheduler
	Version    string
}

// New builds every component from config. The store must already be
// open; the caller owns its lifetime.
func New(cfg *config.Config, st *store.Store, logger *zap.Logger, version string) (*App, error) {
	provider, err := cfg.DefaultProvider()
	if err != nil {
		return nil, err
	}
	llmClient := llm.NewClient(provider)

	registry := tools.NewAssistantRegistry(st, nil)
	buffer := history.NewBuffer(cfg.Conversation.HistoryCapacity)

	systemPrompt := cfg.Conversation.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	systemPrompt = persona.NewManager(cfg.Storage.DataDir, logger).SystemPrompt(systemPrompt)

	controller := agent.NewController(llmClient, registry, buffer, systemPrompt, logger,
		agent.WithMaxToolRounds(cfg.Conversation.MaxToolRounds))

	app := &App{
		Config:     cfg,
		Store:      st,
		Logger:     logger,
		Controller: controller,
		Version:    version,
	}

	if cfg.Voice.Enabled {
		app.Voice = voice.NewPipeline(&cfg.Voice, st, logger)
	}

	if cfg.Reminders.Enabled {
		app.Reminders = reminders.NewScheduler(cfg.Reminders.Schedule, st, app.announce, logger)
	}

	return app, nil
}

// announce delivers a reminder: spoken in voice mode, logged otherwise.
func (app *App) announce(ctx context.Context, message string) {
	if app.Voice != nil && app.Voice.Ready() {
		if err := app.Voice.Speak(ctx, message); err != nil {
			app.Logger.Warn("Failed to speak reminder", zap.Error(err))
		}
		return
	}
	fmt.Println(message)
}

// RunServer serves the dashboard until SIGINT or SIGTERM.
func (app *App) RunServer() {
	if app.Reminders != nil {
		if err := app.Reminders.Start(); err != nil {
			app.Logger.Error("Failed to start reminder scheduler", zap.Error(err))
		}
	}

	server := api.New(app.Config, app.Store, app.Controller, app.Logger)

	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	if app.Reminders != nil {
		app.Reminders.Stop()
	}
	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
}

// RunText handles one message, or drops into the interactive REPL when
// message is empty.
func (app *App) RunText(message string) {
	if message != "" {
		app.oneShot(message)
		return
	}
	app.interactive()
}

func (app *App) oneShot(message string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reply, err := app.Controller.HandleUtterance(ctx, message)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(reply)
}

var exitWords = map[string]bool{
	"exit": true, "quit": true, "q": true, "bye": true, "goodbye": true,
}

func (app *App) interactive() {
	fmt.Println("Aria - Interactive Mode")
	fmt.Println("Type 'exit', 'quit' or 'bye' to leave, 'reset' to clear the conversation")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("You: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if exitWords[strings.ToLower(input)] {
			fmt.Println("Goodbye!")
			return
		}
		if strings.EqualFold(input, "reset") {
			app.Controller.Reset()
			fmt.Println("Conversation cleared.")
			continue
		}

		// Ctrl+C aborts the in-flight turn, not the whole session.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT)
		reply, err := app.Controller.HandleUtterance(ctx, input)
		stop()

		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\n(interrupted)")
				continue
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Printf("Aria: %s\n\n", reply)
	}
}

// RunVoice is the hands-free loop: listen, converse, speak. Ends when
// the user says an exit word or the pipeline is unusable.
func (app *App) RunVoice() {
	if app.Voice == nil {
		fmt.Println("Voice mode is not enabled. Set voice.enabled in the config or ARIA_VOICE_ENABLED=true.")
		os.Exit(1)
	}
	if !app.Voice.Ready() {
		fmt.Println("Voice models or audio tools are missing; falling back to text mode.")
		app.interactive()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionID := app.Voice.StartSession()
	defer app.Voice.EndSession()
	app.Logger.Info("Voice session started", zap.String("session", sessionID))

	fmt.Println("Aria is listening. Say 'goodbye' to stop.")

	for ctx.Err() == nil {
		utterance, err := app.Voice.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			app.Logger.Warn("Listen failed", zap.Error(err))
			continue
		}
		if strings.TrimSpace(utterance) == "" {
			continue
		}

		fmt.Printf("You: %s\n", utterance)

		if exitWords[strings.ToLower(strings.TrimSpace(strings.Trim(utterance, ".!?")))] {
			app.speakOrPrint(ctx, "Goodbye!")
			return
		}

		reply, err := app.Controller.HandleUtterance(ctx, utterance)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			app.Logger.Warn("Turn failed", zap.Error(err))
			continue
		}

		fmt.Printf("Aria: %s\n", reply)
		app.speakOrPrint(ctx, reply)
	}
}

func (app *App) speakOrPrint(ctx context.Context, text string) {
	if err := app.Voice.Speak(ctx, text); err != nil {
		app.Logger.Warn("Failed to speak reply", zap.Error(err))
	}
}
