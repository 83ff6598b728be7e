package main

import (
	"fmt"
	"os"

	"github.com/solunara/gwen/common/environment"
	"github.com/solunara/gwen/common/redact"
	"github.com/solunara/gwen/common/version"
	"github.com/solunara/gwen/internal/gwen/app"
)

func main() {
	fmt.Printf("Gwen Visual Novel Bot\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Backend errors can echo request URLs; keep credentials out of stderr.
	secrets := []string{config.DiscordToken, config.ChatAPIKey, config.EmotionAPIKey}

	gwen, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Gwen: %v\n", redact.String(err.Error(), secrets...))
		os.Exit(1)
	}
	defer gwen.Stop()

	if err := gwen.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Gwen: %v\n", redact.String(err.Error(), secrets...))
		os.Exit(1)
	}
}

// loadConfig loads configuration from environment variables
func loadConfig() (app.Config, error) {
	token, err := environment.RequiredString("DISCORD_TOKEN")
	if err != nil {
		return app.Config{}, err
	}

	return app.Config{
		DiscordToken:   token,
		DatabasePath:   environment.StringOr("DATABASE_PATH", "./gwen.db"),
		ConfigPath:     environment.StringOr("CONFIG_PATH", "./gwen-data/config.yaml"),
		OutputDir:      environment.StringOr("OUTPUT_DIR", "./gwen-data/output"),
		ChatBackend:    environment.StringOr("CHAT_BACKEND", "ollama"),
		ChatBaseURL:    environment.StringOr("CHAT_BASE_URL", ""),
		ChatAPIKey:     environment.StringOr("CHAT_API_KEY", ""),
		ChatTimeout:    environment.DurationOr("CHAT_TIMEOUT", 0),
		EmotionModel:   environment.StringOr("EMOTION_MODEL", ""),
		EmotionBaseURL: environment.StringOr("EMOTION_BASE_URL", ""),
		EmotionAPIKey:  environment.StringOr("EMOTION_API_KEY", ""),
		EmotionTimeout: environment.DurationOr("EMOTION_TIMEOUT", 0),
	}, nil
}
