package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase storage
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// OpenAI (scene planning for the script-to-video path)
	OpenAIKey string

	// Gemini (still-image generation for non-hero scenes)
	ImageGenEnabled bool
	GeminiKey       string

	// Synthetic video generation (deferred submit-then-poll provider)
	VideoGenEnabled bool
	VideoGenAPIKey  string

	// Rendering
	ScratchDir          string // root for per-run scratch workspaces
	StageTimeoutSeconds int    // bound on each external process/network call

	// Worker
	MaxConcurrentJobs int
	ClipGenLimit      int // max simultaneous video-generation calls per run
	ImageGenLimit     int // max simultaneous image-generation calls per run
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "stitched-videos"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		ImageGenEnabled:       getEnvBool("IMAGE_GEN_ENABLED", true),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		VideoGenEnabled:       getEnvBool("VIDEO_GEN_ENABLED", false),
		VideoGenAPIKey:        getEnv("VIDEO_GEN_API_KEY", ""),
		ScratchDir:            getEnv("SCRATCH_DIR", "/tmp/reelforge"),
		StageTimeoutSeconds:   getEnvInt("STAGE_TIMEOUT_SECONDS", 300),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 3),
		ClipGenLimit:          getEnvInt("CLIP_GEN_LIMIT", 2),
		ImageGenLimit:         getEnvInt("IMAGE_GEN_LIMIT", 4),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	// The planner is only needed for the script-to-video path, but a key is
	// required whenever the worker runs so the path can't fail at job time.
	if cfg.WorkerEnabled && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when the worker is enabled")
	}

	if cfg.VideoGenEnabled && cfg.VideoGenAPIKey == "" {
		return nil, fmt.Errorf("VIDEO_GEN_API_KEY is required when VIDEO_GEN_ENABLED=true")
	}

	if cfg.ImageGenEnabled && cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when IMAGE_GEN_ENABLED=true")
	}

	if cfg.ClipGenLimit < 1 {
		cfg.ClipGenLimit = 1
	}
	if cfg.ImageGenLimit < 1 {
		cfg.ImageGenLimit = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
