package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/realtime/endpoint"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DASHSCOPE_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Region != endpoint.RegionInternational {
		t.Fatalf("Region = %q, want %q", cfg.Region, endpoint.RegionInternational)
	}
	if cfg.ASRModel != "qwen3-asr-flash-realtime" || cfg.TTSModel != "qwen-tts-realtime" {
		t.Fatalf("unexpected default models %q and %q", cfg.ASRModel, cfg.TTSModel)
	}
	if cfg.TTSVoice != "Cherry" {
		t.Fatalf("TTSVoice = %q, want Cherry", cfg.TTSVoice)
	}
	if cfg.ConnectTimeout != 30*time.Second || cfg.ReadyTimeout != 10*time.Second || cfg.FinishTimeout != 10*time.Second {
		t.Fatalf("unexpected default timeouts %s, %s and %s", cfg.ConnectTimeout, cfg.ReadyTimeout, cfg.FinishTimeout)
	}
	encoding, err := cfg.TTSEncoding()
	if err != nil {
		t.Fatalf("TTSEncoding() error = %v", err)
	}
	if encoding.SampleRate != 24000 || encoding.Format != audio.EncodingPCM {
		t.Fatalf("TTSEncoding() = %+v, want 24kHz pcm", encoding)
	}
	if cfg.ASREncoding().SampleRate != 16000 {
		t.Fatalf("ASR sample rate = %d, want 16000", cfg.ASREncoding().SampleRate)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DASHSCOPE_API_KEY", "sk-test")
	t.Setenv("DASHSCOPE_REGION", "cn")
	t.Setenv("REALTIME_FINISH_TIMEOUT", "3s")
	t.Setenv("TTS_RESPONSE_FORMAT", "mp3")
	t.Setenv("ASR_SERVER_VAD", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Region != endpoint.RegionChina {
		t.Fatalf("Region = %q, want %q", cfg.Region, endpoint.RegionChina)
	}
	if cfg.FinishTimeout != 3*time.Second {
		t.Fatalf("FinishTimeout = %s, want 3s", cfg.FinishTimeout)
	}
	if cfg.TTSResponseFormat != "mp3" || !cfg.ASRServerVAD {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"DASHSCOPE_API_KEY":        "",
		"DASHSCOPE_REGION":         "mars",
		"REALTIME_CONNECT_TIMEOUT": "soon",
		"REALTIME_FINISH_TIMEOUT":  "0s",
		"TTS_SAMPLE_RATE":          "11025",
		"TTS_RESPONSE_FORMAT":      "flac",
		"ASR_SERVER_VAD":           "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv("DASHSCOPE_API_KEY", "sk-test")
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected Load() to fail for %s=%q", key, value)
			}
		})
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("TTS_VOICE", "Ethan")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TTS_VOICE=Serena\nASR_LANGUAGE=zh\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	// godotenv keeps variables that exist, even when empty
	_ = os.Unsetenv("ASR_LANGUAGE")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("TTS_VOICE"); got != "Ethan" {
		t.Fatalf("TTS_VOICE = %q, want the existing value", got)
	}
	if got := os.Getenv("ASR_LANGUAGE"); got != "zh" {
		t.Fatalf("ASR_LANGUAGE = %q, want value from .env", got)
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_MAX_REQUEST_BYTES",
		"DASHSCOPE_API_KEY",
		"DASHSCOPE_REGION",
		"DASHSCOPE_WS_BASE_URL",
		"ASR_MODEL",
		"ASR_LANGUAGE",
		"ASR_SAMPLE_RATE",
		"ASR_SERVER_VAD",
		"TTS_MODEL",
		"TTS_VOICE",
		"TTS_SAMPLE_RATE",
		"TTS_RESPONSE_FORMAT",
		"REALTIME_CONNECT_TIMEOUT",
		"REALTIME_READY_TIMEOUT",
		"REALTIME_FINISH_TIMEOUT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
