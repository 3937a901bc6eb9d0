package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/endpoint"
	asrqwen "github.com/koscakluka/ema-realtime/core/speechtotext/qwen"
	ttsqwen "github.com/koscakluka/ema-realtime/core/texttospeech/qwen"
)

// Config contains all runtime settings for the realtime speech binary.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	MaxRequestBytes  int

	APIKey    string
	Region    endpoint.Region
	WSBaseURL string

	ASRModel      string
	ASRLanguage   string
	ASRSampleRate int
	ASRServerVAD  bool

	TTSModel          string
	TTSVoice          string
	TTSSampleRate     int
	TTSResponseFormat string

	ConnectTimeout time.Duration
	ReadyTimeout   time.Duration
	FinishTimeout  time.Duration
}

// LoadDotEnv loads variables from the given files, ".env" by default, without
// overriding variables already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "ema_realtime"),
		MaxRequestBytes:   10 << 20,
		APIKey:            stringsTrimSpace("DASHSCOPE_API_KEY"),
		WSBaseURL:         stringsTrimSpace("DASHSCOPE_WS_BASE_URL"),
		ASRModel:          envOrDefault("ASR_MODEL", asrqwen.DefaultModel),
		ASRLanguage:       stringsTrimSpace("ASR_LANGUAGE"),
		ASRSampleRate:     audio.DefaultSampleRate,
		TTSModel:          envOrDefault("TTS_MODEL", ttsqwen.DefaultModel),
		TTSVoice:          envOrDefault("TTS_VOICE", string(ttsqwen.VoiceCherry)),
		TTSSampleRate:     ttsqwen.DefaultSampleRate,
		TTSResponseFormat: envOrDefault("TTS_RESPONSE_FORMAT", audio.DefaultFormat),
		ShutdownTimeout:   15 * time.Second,
		ConnectTimeout:    realtime.DefaultConnectTimeout,
		ReadyTimeout:      realtime.DefaultReadyTimeout,
		FinishTimeout:     realtime.DefaultFinishTimeout,
	}

	var err error
	cfg.Region, err = endpoint.ParseRegion(os.Getenv("DASHSCOPE_REGION"))
	if err != nil {
		return Config{}, fmt.Errorf("DASHSCOPE_REGION: %w", err)
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ConnectTimeout, err = durationFromEnv("REALTIME_CONNECT_TIMEOUT", cfg.ConnectTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReadyTimeout, err = durationFromEnv("REALTIME_READY_TIMEOUT", cfg.ReadyTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.FinishTimeout, err = durationFromEnv("REALTIME_FINISH_TIMEOUT", cfg.FinishTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxRequestBytes, err = intFromEnv("APP_MAX_REQUEST_BYTES", cfg.MaxRequestBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.ASRSampleRate, err = intFromEnv("ASR_SAMPLE_RATE", cfg.ASRSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSSampleRate, err = intFromEnv("TTS_SAMPLE_RATE", cfg.TTSSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.ASRServerVAD, err = boolFromEnv("ASR_SERVER_VAD", cfg.ASRServerVAD)
	if err != nil {
		return Config{}, err
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("DASHSCOPE_API_KEY is required")
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("REALTIME_CONNECT_TIMEOUT must be positive")
	}
	if cfg.ReadyTimeout <= 0 {
		return Config{}, fmt.Errorf("REALTIME_READY_TIMEOUT must be positive")
	}
	if cfg.FinishTimeout <= 0 {
		return Config{}, fmt.Errorf("REALTIME_FINISH_TIMEOUT must be positive")
	}
	if cfg.MaxRequestBytes <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_REQUEST_BYTES must be positive")
	}
	if _, err := cfg.TTSEncoding(); err != nil {
		return Config{}, fmt.Errorf("invalid TTS encoding: %w", err)
	}
	if err := cfg.ASREncoding().Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid ASR encoding: %w", err)
	}

	return cfg, nil
}

func (c Config) ASREncoding() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: c.ASRSampleRate, Format: audio.EncodingPCM}
}

func (c Config) TTSEncoding() (audio.EncodingInfo, error) {
	format, err := audio.ParseFormat(c.TTSResponseFormat)
	if err != nil {
		return audio.EncodingInfo{}, err
	}
	encoding := audio.EncodingInfo{SampleRate: c.TTSSampleRate, Format: format}
	if err := encoding.Validate(); err != nil {
		return audio.EncodingInfo{}, err
	}
	return encoding, nil
}

// SessionOptions are the realtime session settings shared by both clients.
func (c Config) SessionOptions() []realtime.Option {
	return []realtime.Option{
		realtime.WithConnectTimeout(c.ConnectTimeout),
		realtime.WithReadyTimeout(c.ReadyTimeout),
		realtime.WithFinishTimeout(c.FinishTimeout),
	}
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
