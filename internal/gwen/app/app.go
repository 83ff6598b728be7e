// Package app assembles and runs the Gwen application.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solunara/gwen/common/redact"
	"github.com/solunara/gwen/internal/gwen/bot"
	"github.com/solunara/gwen/internal/gwen/chat"
	"github.com/solunara/gwen/internal/gwen/config"
	"github.com/solunara/gwen/internal/gwen/emotion"
	"github.com/solunara/gwen/internal/gwen/history"
	"github.com/solunara/gwen/internal/gwen/session"
	"github.com/solunara/gwen/internal/gwen/store"
	"github.com/solunara/gwen/internal/gwen/vn"
)

// Config holds application configuration assembled from the environment
// and the character config file.
type Config struct {
	// DiscordToken authenticates the bot against the Discord gateway.
	DiscordToken string

	// DatabasePath is the SQLite file holding conversation history.
	DatabasePath string

	// ConfigPath is the character configuration file (YAML or JSON).
	ConfigPath string

	// OutputDir receives rendered screen images.
	OutputDir string

	// ChatBackend selects the completion backend: "ollama" (default) or
	// "openai".
	ChatBackend string

	// ChatBaseURL overrides the chat backend endpoint.
	ChatBaseURL string

	// ChatAPIKey is the API key for hosted chat backends.
	ChatAPIKey string

	// ChatTimeout bounds a single completion call. Zero selects the
	// backend default.
	ChatTimeout time.Duration

	// EmotionModel overrides the emotion classification model.
	EmotionModel string

	// EmotionBaseURL overrides the classification endpoint.
	EmotionBaseURL string

	// EmotionAPIKey is the API key for the classification endpoint.
	EmotionAPIKey string

	// EmotionTimeout bounds a single classification call. Zero selects
	// the backend default.
	EmotionTimeout time.Duration
}

// App is the assembled application.
type App struct {
	store  *store.Store
	bot    *bot.Bot
	logger *slog.Logger
}

// New wires the application together. The Discord connection is not opened
// until Run.
func New(cfg Config) (*App, error) {
	logger := slog.Default()
	logger.Debug("assembling application", "config", redact.Map(map[string]any{
		"discord_token":    cfg.DiscordToken,
		"database_path":    cfg.DatabasePath,
		"config_path":      cfg.ConfigPath,
		"output_dir":       cfg.OutputDir,
		"chat_backend":     cfg.ChatBackend,
		"chat_base_url":    cfg.ChatBaseURL,
		"chat_api_key":     cfg.ChatAPIKey,
		"emotion_model":    cfg.EmotionModel,
		"emotion_base_url": cfg.EmotionBaseURL,
		"emotion_api_key":  cfg.EmotionAPIKey,
	}))

	character, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	hist := history.New(st.DB(), logger)

	var chatFn chat.Func
	switch cfg.ChatBackend {
	case "", "ollama":
		chatFn = chat.NewOllama(chat.OllamaConfig{BaseURL: cfg.ChatBaseURL, Timeout: cfg.ChatTimeout})
	case "openai":
		chatFn = chat.NewOpenAI(chat.OpenAIConfig{APIKey: cfg.ChatAPIKey, BaseURL: cfg.ChatBaseURL})
	default:
		st.Close()
		return nil, fmt.Errorf("unknown chat backend %q", cfg.ChatBackend)
	}

	responder := session.NewResponder(hist, chatFn, character.Model, logger)

	classifier := emotion.New(func() (emotion.PipelineFunc, error) {
		return emotion.NewInferencePipeline(emotion.InferenceConfig{
			Model:   cfg.EmotionModel,
			BaseURL: cfg.EmotionBaseURL,
			APIKey:  cfg.EmotionAPIKey,
			Timeout: cfg.EmotionTimeout,
		}), nil
	}, cfg.EmotionModel, logger)

	renderer, err := vn.NewRenderer(character.FontPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := renderer.LoadAssets(character.AssetsRoot); err != nil {
		st.Close()
		return nil, err
	}

	b, err := bot.New(cfg.DiscordToken, responder, classifier, renderer, character, cfg.OutputDir, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{store: st, bot: b, logger: logger}, nil
}

// Run connects to Discord and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.bot.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	a.logger.Info("shutting down", "signal", s.String())
	return nil
}

// Stop closes the Discord connection and the database.
func (a *App) Stop() {
	if err := a.bot.Stop(); err != nil {
		a.logger.Error("failed to close discord session", "err", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "err", err)
	}
}
