package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/escriba-legal/escriba-backend/internal/platform/envutil"
)

// Config is the explicit configuration handed to the edit engine and the
// HTTP surface at construction. There are no module-level toggles.
type Config struct {
	Port    string
	LogMode string

	EnableAI      bool
	PrimaryModel  string
	FallbackModel string
	TierTimeout   time.Duration

	CacheMaxEntries int

	RedisAddr    string
	RedisChannel string

	ExcerptParagraphs int
	ExcerptRunes      int
}

type fileConfig struct {
	Port              *string `yaml:"port"`
	LogMode           *string `yaml:"log_mode"`
	EnableAI          *bool   `yaml:"enable_ai"`
	PrimaryModel      *string `yaml:"primary_model"`
	FallbackModel     *string `yaml:"fallback_model"`
	TierTimeoutMS     *int    `yaml:"tier_timeout_ms"`
	CacheMaxEntries   *int    `yaml:"cache_max_entries"`
	RedisAddr         *string `yaml:"redis_addr"`
	RedisChannel      *string `yaml:"redis_channel"`
	ExcerptParagraphs *int    `yaml:"excerpt_paragraphs"`
	ExcerptRunes      *int    `yaml:"excerpt_runes"`
}

// Load builds the config from the environment, then overlays the optional
// YAML file named by ESCRIBA_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		Port:              envutil.Str("PORT", "8080"),
		LogMode:           envutil.Str("LOG_MODE", "development"),
		EnableAI:          envutil.Bool("EDIT_ENABLE_AI", true),
		PrimaryModel:      envutil.Str("EDIT_PRIMARY_MODEL", "gpt-5.2"),
		FallbackModel:     envutil.Str("EDIT_FALLBACK_MODEL", "gpt-5-mini"),
		TierTimeout:       envutil.Duration("EDIT_TIER_TIMEOUT", 20*time.Second),
		CacheMaxEntries:   envutil.Int("EDIT_CACHE_MAX_ENTRIES", 512),
		RedisAddr:         envutil.Str("REDIS_ADDR", ""),
		RedisChannel:      envutil.Str("REDIS_CHANNEL", "edit-outcomes"),
		ExcerptParagraphs: envutil.Int("EDIT_EXCERPT_PARAGRAPHS", 6),
		ExcerptRunes:      envutil.Int("EDIT_EXCERPT_RUNES", 240),
	}

	path := strings.TrimSpace(os.Getenv("ESCRIBA_CONFIG"))
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != nil {
		cfg.Port = strings.TrimSpace(*fc.Port)
	}
	if fc.LogMode != nil {
		cfg.LogMode = strings.TrimSpace(*fc.LogMode)
	}
	if fc.EnableAI != nil {
		cfg.EnableAI = *fc.EnableAI
	}
	if fc.PrimaryModel != nil {
		cfg.PrimaryModel = strings.TrimSpace(*fc.PrimaryModel)
	}
	if fc.FallbackModel != nil {
		cfg.FallbackModel = strings.TrimSpace(*fc.FallbackModel)
	}
	if fc.TierTimeoutMS != nil && *fc.TierTimeoutMS > 0 {
		cfg.TierTimeout = time.Duration(*fc.TierTimeoutMS) * time.Millisecond
	}
	if fc.CacheMaxEntries != nil && *fc.CacheMaxEntries > 0 {
		cfg.CacheMaxEntries = *fc.CacheMaxEntries
	}
	if fc.RedisAddr != nil {
		cfg.RedisAddr = strings.TrimSpace(*fc.RedisAddr)
	}
	if fc.RedisChannel != nil {
		cfg.RedisChannel = strings.TrimSpace(*fc.RedisChannel)
	}
	if fc.ExcerptParagraphs != nil && *fc.ExcerptParagraphs > 0 {
		cfg.ExcerptParagraphs = *fc.ExcerptParagraphs
	}
	if fc.ExcerptRunes != nil && *fc.ExcerptRunes > 0 {
		cfg.ExcerptRunes = *fc.ExcerptRunes
	}
	return cfg, nil
}
