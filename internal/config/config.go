package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Speech-to-text provider
	OpenAIAPIKey    string
	WhisperModel    string
	WhisperLanguage string
	SpeechTimeout   time.Duration
	AudioDownloadUA string

	// WhatsApp gateway (YUMER/CodeChat)
	GatewayBaseURL string
	GatewayAPIKey  string

	// AI assistant collaborator
	AssistantBaseURL string
	AssistantAPIKey  string
	AssistantTimeout time.Duration

	// Realtime transport
	RealtimeURL    string
	RealtimeSecret string

	// Audio auto-processor
	WorkerInstance        string
	AudioWorkerCap        int
	AudioProcessTimeout   time.Duration
	AudioPollInterval     time.Duration
	RealtimeIdleThreshold time.Duration

	// CORS
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		WhisperModel:    getEnv("WHISPER_MODEL", "whisper-1"),
		WhisperLanguage: getEnv("WHISPER_LANGUAGE", "pt"),
		SpeechTimeout:   getEnvAsDuration("SPEECH_TIMEOUT", 25*time.Second),
		AudioDownloadUA: getEnv("AUDIO_DOWNLOAD_USER_AGENT", "atendezap-transcriber/1.0"),

		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:  getEnv("GATEWAY_API_KEY", ""),

		AssistantBaseURL: getEnv("ASSISTANT_BASE_URL", ""),
		AssistantAPIKey:  getEnv("ASSISTANT_API_KEY", ""),
		AssistantTimeout: getEnvAsDuration("ASSISTANT_TIMEOUT", 60*time.Second),

		RealtimeURL:    getEnv("REALTIME_URL", ""),
		RealtimeSecret: getEnv("REALTIME_SECRET", ""),

		WorkerInstance:        getEnv("WORKER_INSTANCE", ""),
		AudioWorkerCap:        getEnvAsInt("AUDIO_WORKER_CAP", 3),
		AudioProcessTimeout:   getEnvAsDuration("AUDIO_PROCESS_TIMEOUT", 120*time.Second),
		AudioPollInterval:     getEnvAsDuration("AUDIO_POLL_INTERVAL", 30*time.Second),
		RealtimeIdleThreshold: getEnvAsDuration("REALTIME_IDLE_THRESHOLD", 60*time.Second),

		CORSAllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGINS", "*")},
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
