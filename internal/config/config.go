package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	AudioDir   string `env:"AUDIO_DIR" envDefault:"./audio"`
	VoicesFile string `env:"VOICES_FILE"`

	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsBaseURL string `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io"`
	ElevenLabsModel   string `env:"ELEVENLABS_MODEL" envDefault:"eleven_multilingual_v2"`
	OutputFormat      string `env:"TTS_OUTPUT_FORMAT" envDefault:"mp3_44100_128"`

	FalAPIKey     string `env:"FAL_API_KEY"`
	DialogBaseURL string `env:"DIALOG_BASE_URL" envDefault:"https://fal.run/fal-ai/playai"`

	TTSWorkers     int           `env:"TTS_WORKERS" envDefault:"2"`
	TTSQueueSize   int           `env:"TTS_QUEUE_SIZE" envDefault:"256"`
	TTSPacing      time.Duration `env:"TTS_PACING" envDefault:"250ms"`
	TTSTimeout     time.Duration `env:"TTS_TIMEOUT" envDefault:"60s"`
	TTSMaxRetries  int           `env:"TTS_MAX_RETRIES" envDefault:"5"`
	TTSRetryBase   time.Duration `env:"TTS_RETRY_BASE" envDefault:"400ms"`
	TTSRetryCap    time.Duration `env:"TTS_RETRY_CAP" envDefault:"4s"`
	TTSRetryJitter time.Duration `env:"TTS_RETRY_JITTER" envDefault:"200ms"`

	CacheBudgetMB    int64   `env:"TTS_CACHE_BUDGET_MB" envDefault:"64"`
	EventRingSize    int     `env:"EVENT_RING_SIZE" envDefault:"256"`
	GlobalGapSeconds float64 `env:"GLOBAL_GAP_SECONDS" envDefault:"10"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile    string
	HTTPAddr   string
	LogLevel   string
	AudioDir   string
	VoicesFile string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.AudioDir != "" {
		cfg.AudioDir = overrides.AudioDir
	}
	if overrides.VoicesFile != "" {
		cfg.VoicesFile = overrides.VoicesFile
	}

	return cfg, nil
}

// CacheBudgetBytes converts the configured megabyte budget.
func (c *Config) CacheBudgetBytes() int64 {
	return c.CacheBudgetMB << 20
}
