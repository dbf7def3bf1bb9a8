package config

import (
	"log"
	"os"
	"strconv"
)

const (
	defaultDBPath           = "./dev.db"
	defaultPort             = "8080"
	defaultLogFormat        = "text"
	defaultCacheMaxAgeHours = 168
	defaultBasePrice        = 20000
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath           string
	Port             string
	Env              string
	LogFormat        string
	CacheMaxAgeHours int
	DefaultBasePrice float64

	// Base URLs for the external decode/enrichment/listing services. Any of
	// them may be empty, in which case the pipeline treats the collaborator
	// as unavailable.
	VINDecoderURL string
	EnrichmentURL string
	ListingsURL   string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		Env:           os.Getenv("APP_ENV"),
		LogFormat:     os.Getenv("LOG_FORMAT"),
		VINDecoderURL: os.Getenv("VIN_DECODER_URL"),
		EnrichmentURL: os.Getenv("ENRICHMENT_URL"),
		ListingsURL:   os.Getenv("LISTINGS_URL"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}

	cfg.CacheMaxAgeHours = intEnv("CACHE_MAX_AGE_HOURS", defaultCacheMaxAgeHours)
	cfg.DefaultBasePrice = floatEnv("DEFAULT_BASE_PRICE", defaultBasePrice)

	return cfg
}

// IsDev reports whether the app runs outside production.
func (c Config) IsDev() bool {
	return c.Env != "production"
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("warning: %s=%q is not a positive integer, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func floatEnv(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.Printf("warning: %s=%q is not a positive number, using %v", key, raw, fallback)
		return fallback
	}
	return v
}
