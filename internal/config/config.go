// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jeranaias/chatbot-tui/internal/cloud"
	"github.com/jeranaias/chatbot-tui/internal/export"
	"github.com/jeranaias/chatbot-tui/internal/media"
	"github.com/jeranaias/chatbot-tui/internal/storage"
	"github.com/jeranaias/chatbot-tui/internal/util"
)

// Provider defaults.
const (
	GroqName    = "Groq"
	GroqBaseURL = "https://api.groq.com/openai/v1"
	GroqModel   = "llama3-8b-8192"

	MiniMaxName    = "MiniMax"
	MiniMaxBaseURL = "https://api.minimax.chat/v1"
	MiniMaxModel   = "abab6.5-chat"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete chatbot configuration.
type Config struct {
	Provider ProviderConfig `toml:"provider" json:"provider"`
	Chat     ChatConfig     `toml:"chat" json:"chat"`
	Media    MediaConfig    `toml:"media" json:"media"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Export   ExportConfig   `toml:"export" json:"export"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ProviderConfig holds credentials and endpoints for both providers.
type ProviderConfig struct {
	GroqAPIKey  string `toml:"groq_api_key" json:"groq_api_key" env:"GROQ_API_KEY"`
	GroqBaseURL string `toml:"groq_base_url" json:"groq_base_url" env:"GROQ_BASE_URL"`
	GroqModel   string `toml:"groq_model" json:"groq_model" env:"GROQ_MODEL"`

	MiniMaxAPIKey  string `toml:"minimax_api_key" json:"minimax_api_key" env:"MINIMAX_API_KEY"`
	MiniMaxBaseURL string `toml:"minimax_base_url" json:"minimax_base_url" env:"MINIMAX_BASE_URL"`
	MiniMaxModel   string `toml:"minimax_model" json:"minimax_model" env:"MINIMAX_MODEL"`

	// Model overrides the selected provider's model when set.
	Model string `toml:"model" json:"model" env:"CHATBOT_MODEL"`
}

// ChatConfig controls request shape.
type ChatConfig struct {
	SystemPrompt      string  `toml:"system_prompt" json:"system_prompt" env:"CHATBOT_SYSTEM_PROMPT"`
	MaxTokens         int     `toml:"max_tokens" json:"max_tokens" env:"CHATBOT_MAX_TOKENS"`
	Temperature       float64 `toml:"temperature" json:"temperature" env:"CHATBOT_TEMPERATURE"`
	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs" env:"CHATBOT_TIMEOUT_SECS"`
	RequestsPerMinute int     `toml:"requests_per_minute" json:"requests_per_minute" env:"CHATBOT_REQUESTS_PER_MINUTE"`
}

// MediaConfig controls attachments and capture.
type MediaConfig struct {
	MaxFileSize int64    `toml:"max_file_size" json:"max_file_size" env:"CHATBOT_MAX_FILE_SIZE"`
	ImageTypes  []string `toml:"image_types" json:"image_types" env:"CHATBOT_IMAGE_TYPES" envSeparator:","`
	AudioTypes  []string `toml:"audio_types" json:"audio_types" env:"CHATBOT_AUDIO_TYPES" envSeparator:","`
	VideoTypes  []string `toml:"video_types" json:"video_types" env:"CHATBOT_VIDEO_TYPES" envSeparator:","`

	// CapturesDir holds camera and microphone recordings.
	CapturesDir string `toml:"captures_dir" json:"captures_dir" env:"CHATBOT_CAPTURES_DIR"`

	FFmpegPath  string   `toml:"ffmpeg_path" json:"ffmpeg_path" env:"CHATBOT_FFMPEG"`
	CameraInput []string `toml:"camera_input" json:"camera_input,omitempty"`
	MicInput    []string `toml:"mic_input" json:"mic_input,omitempty"`
}

// StorageConfig selects the local-storage backend.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend" json:"backend" env:"CHATBOT_STORAGE"`
	DataDir string `toml:"data_dir" json:"data_dir" env:"CHATBOT_DATA_DIR"`

	// Watch reloads sessions changed by another process.
	Watch bool `toml:"watch" json:"watch" env:"CHATBOT_WATCH"`
}

// ExportConfig controls conversation downloads.
type ExportConfig struct {
	DownloadsDir string `toml:"downloads_dir" json:"downloads_dir" env:"CHATBOT_DOWNLOADS_DIR"`
	Format       string `toml:"format" json:"format" env:"CHATBOT_EXPORT_FORMAT"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme        string `toml:"theme" json:"theme" env:"CHATBOT_THEME"`
	ShowSidebar  bool   `toml:"show_sidebar" json:"show_sidebar"`
	ToastSeconds int    `toml:"toast_seconds" json:"toast_seconds"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level" env:"CHATBOT_LOG_LEVEL"`
	File  string `toml:"file" json:"file" env:"CHATBOT_LOG_FILE"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with default values. Directories are left empty
// and resolved by SetDefaults.
func Default() *Config {
	constraints := media.DefaultConstraints()
	return &Config{
		Provider: ProviderConfig{
			GroqBaseURL:    GroqBaseURL,
			GroqModel:      GroqModel,
			MiniMaxBaseURL: MiniMaxBaseURL,
			MiniMaxModel:   MiniMaxModel,
		},
		Chat: ChatConfig{
			SystemPrompt: cloud.DefaultSystemPrompt,
			MaxTokens:    cloud.DefaultMaxTokens,
			Temperature:  cloud.DefaultTemperature,
			TimeoutSecs:  int(cloud.DefaultTimeout / time.Second),
		},
		Media: MediaConfig{
			MaxFileSize: constraints.MaxFileSize,
			ImageTypes:  constraints.ImageTypes,
			AudioTypes:  constraints.AudioTypes,
			VideoTypes:  constraints.VideoTypes,
			FFmpegPath:  "ffmpeg",
		},
		Storage: StorageConfig{
			Backend: storage.KindFile,
			Watch:   true,
		},
		Export: ExportConfig{
			Format: "text",
		},
		UI: UIConfig{
			Theme:        "auto",
			ShowSidebar:  true,
			ToastSeconds: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns ~/.chatbot.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatbot"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// expandHome replaces a leading "~" with the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ensureSecurePermissions tightens a config file that holds API keys to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads defaults, then the TOML file at path (the default path when
// empty; a missing file is not an error), then environment overrides, then
// each override in order. The result is validated.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnvOverrides overwrites fields whose environment variable is set.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// SetDefaults resolves directories and fills empty values.
func (c *Config) SetDefaults() error {
	defaults := Default()

	if c.Storage.DataDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		c.Storage.DataDir = dir
	}
	c.Storage.DataDir = expandHome(c.Storage.DataDir)

	if c.Media.CapturesDir == "" {
		c.Media.CapturesDir = filepath.Join(c.Storage.DataDir, "captures")
	}
	c.Media.CapturesDir = expandHome(c.Media.CapturesDir)

	if c.Export.DownloadsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not determine home directory: %w", err)
		}
		c.Export.DownloadsDir = filepath.Join(home, "Downloads")
	}
	c.Export.DownloadsDir = expandHome(c.Export.DownloadsDir)

	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.Storage.DataDir, "chatbot.log")
	}
	c.Log.File = expandHome(c.Log.File)

	if c.Provider.GroqBaseURL == "" {
		c.Provider.GroqBaseURL = defaults.Provider.GroqBaseURL
	}
	if c.Provider.GroqModel == "" {
		c.Provider.GroqModel = defaults.Provider.GroqModel
	}
	if c.Provider.MiniMaxBaseURL == "" {
		c.Provider.MiniMaxBaseURL = defaults.Provider.MiniMaxBaseURL
	}
	if c.Provider.MiniMaxModel == "" {
		c.Provider.MiniMaxModel = defaults.Provider.MiniMaxModel
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = defaults.Chat.SystemPrompt
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Export.Format == "" {
		c.Export.Format = defaults.Export.Format
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.ToastSeconds == 0 {
		c.UI.ToastSeconds = defaults.UI.ToastSeconds
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	return nil
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# chatbot configuration file\n")
	buf.WriteString("# Environment variables (GROQ_API_KEY, MINIMAX_API_KEY, CHATBOT_*) override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for field, raw := range map[string]string{
		"provider.groq_base_url":    c.Provider.GroqBaseURL,
		"provider.minimax_base_url": c.Provider.MiniMaxBaseURL,
	} {
		if err := validateBaseURL(raw); err != nil {
			add(field, "%v", err)
		}
	}

	if c.Chat.MaxTokens <= 0 {
		add("chat.max_tokens", "must be positive, got %d", c.Chat.MaxTokens)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		add("chat.temperature", "must be between 0 and 2, got %g", c.Chat.Temperature)
	}
	if c.Chat.TimeoutSecs <= 0 || c.Chat.TimeoutSecs > 600 {
		add("chat.timeout_secs", "must be between 1 and 600, got %d", c.Chat.TimeoutSecs)
	}
	if c.Chat.RequestsPerMinute < 0 {
		add("chat.requests_per_minute", "must not be negative, got %d", c.Chat.RequestsPerMinute)
	}

	if c.Media.MaxFileSize <= 0 {
		add("media.max_file_size", "must be positive, got %d", c.Media.MaxFileSize)
	}
	for field, types := range map[string][]string{
		"media.image_types": c.Media.ImageTypes,
		"media.audio_types": c.Media.AudioTypes,
		"media.video_types": c.Media.VideoTypes,
	} {
		for _, t := range types {
			if !strings.Contains(t, "/") {
				add(field, "invalid MIME type '%s'", t)
			}
		}
	}

	switch c.Storage.Backend {
	case storage.KindFile, storage.KindSQLite, storage.KindMemory:
	default:
		add("storage.backend", "invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend)
	}

	if _, err := export.ForFormat(c.Export.Format, nil); err != nil {
		add("export.format", "invalid format '%s', must be one of: %s", c.Export.Format, strings.Join(export.Formats, ", "))
	}

	if !slices.Contains([]string{"auto", "dark", "light"}, strings.ToLower(c.UI.Theme)) {
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.ToastSeconds < 0 {
		add("ui.toast_seconds", "must not be negative, got %d", c.UI.ToastSeconds)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// ActiveProvider selects MiniMax when its key is set and Groq otherwise.
// The returned provider may have an empty key.
func (c *Config) ActiveProvider() cloud.Provider {
	p := cloud.Provider{
		Name:    GroqName,
		BaseURL: c.Provider.GroqBaseURL,
		APIKey:  strings.TrimSpace(c.Provider.GroqAPIKey),
		Model:   c.Provider.GroqModel,
	}
	if key := strings.TrimSpace(c.Provider.MiniMaxAPIKey); key != "" {
		p = cloud.Provider{
			Name:    MiniMaxName,
			BaseURL: c.Provider.MiniMaxBaseURL,
			APIKey:  key,
			Model:   c.Provider.MiniMaxModel,
		}
	}
	if c.Provider.Model != "" {
		p.Model = c.Provider.Model
	}
	return p
}

// NewClient builds the chat client for the active provider.
func (c *Config) NewClient() *cloud.Client {
	return cloud.NewClient(c.ActiveProvider()).
		WithSystemPrompt(c.Chat.SystemPrompt).
		WithMaxTokens(c.Chat.MaxTokens).
		WithTemperature(c.Chat.Temperature).
		WithTimeout(time.Duration(c.Chat.TimeoutSecs) * time.Second).
		WithRequestsPerMinute(c.Chat.RequestsPerMinute)
}

// MediaConstraints returns the upload limits.
func (c *Config) MediaConstraints() media.Constraints {
	return media.Constraints{
		MaxFileSize: c.Media.MaxFileSize,
		ImageTypes:  slices.Clone(c.Media.ImageTypes),
		AudioTypes:  slices.Clone(c.Media.AudioTypes),
		VideoTypes:  slices.Clone(c.Media.VideoTypes),
	}
}

// FFmpegDevice returns the capture device described by the media section.
func (c *Config) FFmpegDevice() *media.FFmpegDevice {
	return &media.FFmpegDevice{
		Path:        c.Media.FFmpegPath,
		CameraInput: slices.Clone(c.Media.CameraInput),
		MicInput:    slices.Clone(c.Media.MicInput),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Media.ImageTypes = slices.Clone(c.Media.ImageTypes)
	clone.Media.AudioTypes = slices.Clone(c.Media.AudioTypes)
	clone.Media.VideoTypes = slices.Clone(c.Media.VideoTypes)
	clone.Media.CameraInput = slices.Clone(c.Media.CameraInput)
	clone.Media.MicInput = slices.Clone(c.Media.MicInput)
	return &clone
}

// Redacted returns a copy with API keys masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Provider.GroqAPIKey != "" {
		safe.Provider.GroqAPIKey = cloud.MaskKey(safe.Provider.GroqAPIKey)
	}
	if safe.Provider.MiniMaxAPIKey != "" {
		safe.Provider.MiniMaxAPIKey = cloud.MaskKey(safe.Provider.MiniMaxAPIKey)
	}
	return safe
}

// String returns the config as JSON with API keys masked.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
