package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings are the user's chatbot preferences. They are owned by whoever
// loads them and passed explicitly to the session controller.
type Settings struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	// PlaceholderNames overrides the built-in title of a new session, keyed
	// by language.
	PlaceholderNames map[string]string `yaml:"placeholder_names,omitempty"`
}

var placeholderNames = map[string]string{
	"en": "New chat",
	"es": "Nuevo chat",
	"de": "Neuer Chat",
	"fr": "Nouvelle discussion",
	"it": "Nuova chat",
	"pt": "Nova conversa",
}

// DefaultSettings returns the settings used when no file exists yet
func DefaultSettings() Settings {
	return Settings{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Language: "en",
	}
}

// LoadSettings reads settings from path, merged over the defaults. A missing
// file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return &s, nil
}

// Save writes the settings to path atomically
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// Write to temp file
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Validate checks that a chat request can be built from the settings
func (s *Settings) Validate() error {
	if s.Provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	if s.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	return nil
}

// PlaceholderName is the localized title given to a session before it is
// renamed from its first message
func (s *Settings) PlaceholderName() string {
	lang := normalizeLanguage(s.Language)
	if name := s.PlaceholderNames[lang]; name != "" {
		return name
	}
	if name := placeholderNames[lang]; name != "" {
		return name
	}
	return placeholderNames["en"]
}

// normalizeLanguage turns "pt-BR" or "de_DE" into "pt" / "de"
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
