// Package config provides configuration management for the calling service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telephony TelephonyConfig `mapstructure:"telephony"`
	STT       STTConfig       `mapstructure:"stt"`
	TTS       TTSConfig       `mapstructure:"tts"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// PublicURL is the externally reachable base the telephony provider
	// calls back to (e.g. an ngrok https URL), no trailing slash.
	PublicURL string `mapstructure:"public_url"`
	LogLevel  string `mapstructure:"log_level"`
}

// TelephonyConfig configures the outbound-call provider.
type TelephonyConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	BaseURL    string `mapstructure:"base_url"`
}

// STTConfig configures streaming transcription.
type STTConfig struct {
	DeepgramAPIKey string `mapstructure:"deepgram_api_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	InterimResults bool   `mapstructure:"interim_results"`
}

// TTSConfig configures speech synthesis.
type TTSConfig struct {
	ElevenLabsAPIKey string  `mapstructure:"elevenlabs_api_key"`
	ModelID          string  `mapstructure:"model_id"`
	Stability        float64 `mapstructure:"stability"`
	Similarity       float64 `mapstructure:"similarity"`
}

// LLMConfig configures response generation.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
}

// EngineConfig tunes the conversation engine.
type EngineConfig struct {
	FollowUpDelay   time.Duration `mapstructure:"follow_up_delay"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	EnergyThreshold float64       `mapstructure:"energy_threshold"`
}

// Load reads configuration from config.yaml (working directory) and
// CALLERD_-prefixed environment variables, env winning.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CALLERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("stt.model", "nova-2")
	v.SetDefault("stt.language", "hi")
	v.SetDefault("stt.interim_results", true)

	v.SetDefault("tts.model_id", "eleven_multilingual_v2")
	v.SetDefault("tts.stability", 0.5)
	v.SetDefault("tts.similarity", 0.75)

	v.SetDefault("llm.model", "gemini-2.0-flash")

	v.SetDefault("engine.follow_up_delay", 5*time.Minute)
	v.SetDefault("engine.session_ttl", 30*time.Minute)
	v.SetDefault("engine.sweep_interval", 5*time.Minute)
	v.SetDefault("engine.energy_threshold", 0.03)
}

// Validate rejects missing or placeholder credentials before the service
// accepts calls. Placeholder values survive from copied sample configs.
func (c *Config) Validate() error {
	required := map[string]string{
		"server.public_url":      c.Server.PublicURL,
		"telephony.account_sid":  c.Telephony.AccountSID,
		"telephony.auth_token":   c.Telephony.AuthToken,
		"telephony.from_number":  c.Telephony.FromNumber,
		"stt.deepgram_api_key":   c.STT.DeepgramAPIKey,
		"tts.elevenlabs_api_key": c.TTS.ElevenLabsAPIKey,
		"llm.gemini_api_key":     c.LLM.GeminiAPIKey,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("config: %s is required", key)
		}
		if strings.Contains(strings.ToUpper(value), "REPLACE") {
			return fmt.Errorf("config: %s still holds a placeholder value", key)
		}
	}
	if !strings.HasPrefix(c.Server.PublicURL, "http://") && !strings.HasPrefix(c.Server.PublicURL, "https://") {
		return fmt.Errorf("config: server.public_url must be an http(s) URL")
	}
	return nil
}
