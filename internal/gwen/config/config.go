// Package config loads and validates the character configuration file.
//
// The file describes the persona (bot name, system prompt) and the visual
// assets of the novel overlay. It is parsed as YAML; since YAML is a
// superset of JSON, legacy JSON config files load unchanged. The decoded
// document is validated against an embedded JSON Schema before use, so a
// typo in a sprite path fails at startup instead of mid-conversation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is the persona used when the config file does not
// provide one.
const DefaultSystemPrompt = "You are an anime waifu named Gwen."

//go:embed schema.json
var schemaJSON string

// Config is the decoded character configuration. There is no process-wide
// config singleton: the loaded Config is passed explicitly to every
// component that needs it.
type Config struct {
	// BotName is the display name shown in the stats line of the overlay.
	BotName string `yaml:"BOT-NAME" json:"BOT-NAME"`

	// RawSystemPrompt is the persona instruction pinned as the first message
	// of every conversation. Access it through SystemPrompt, which applies
	// the default.
	RawSystemPrompt string `yaml:"SYSTEM_PROMPT" json:"SYSTEM_PROMPT"`

	// Model is the chat model identifier passed to the completion backend.
	Model string `yaml:"MODEL" json:"MODEL"`

	// AssetsRoot is the directory holding sprites, backgrounds and UI
	// overlays. Empty means the current working directory.
	AssetsRoot string `yaml:"ASSETS-ROOT" json:"ASSETS-ROOT"`

	// FontPath is an optional TTF font used for dialogue text. When empty
	// a built-in bitmap font is used.
	FontPath string `yaml:"FONT-PATH" json:"FONT-PATH"`
}

// SystemPrompt returns the configured system prompt, or DefaultSystemPrompt
// when the config does not set one.
func (c *Config) SystemPrompt() string {
	if c == nil || c.RawSystemPrompt == "" {
		return DefaultSystemPrompt
	}
	return c.RawSystemPrompt
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	// Decode once into a generic document for schema validation, then again
	// into the typed struct. The generic pass is what the schema checks.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// validate checks the decoded document against the embedded schema.
func validate(doc any) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}
	if err := schema.Validate(normalize(doc)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// normalize converts yaml.v3's map[string]any / []any tree into the shape
// jsonschema expects. yaml.v3 already decodes mappings with string keys,
// but nested numeric scalars may decode as int where the validator wants
// json.Number-compatible values; a pass through the tree keeps the
// validator happy for all documents we accept.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalize(val)
		}
		return s
	default:
		return v
	}
}
