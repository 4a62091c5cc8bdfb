package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			PublicURL: "https://callerd.example.com",
		},
		Telephony: TelephonyConfig{
			AccountSID: "AC123",
			AuthToken:  "token",
			FromNumber: "+15550001111",
		},
		STT: STTConfig{DeepgramAPIKey: "dg-key"},
		TTS: TTSConfig{ElevenLabsAPIKey: "el-key"},
		LLM: LLMConfig{GeminiAPIKey: "gm-key"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingCredential(t *testing.T) {
	cfg := validConfig()
	cfg.Telephony.AuthToken = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telephony.auth_token")
}

func TestValidate_PlaceholderCredential(t *testing.T) {
	cfg := validConfig()
	cfg.Telephony.AccountSID = "REPLACE_WITH_YOUR_SID"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestValidate_BadPublicURL(t *testing.T) {
	cfg := validConfig()
	cfg.Server.PublicURL = "callerd.example.com"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "public_url"))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "nova-2", cfg.STT.Model)
	assert.Equal(t, "hi", cfg.STT.Language)
	assert.True(t, cfg.STT.InterimResults)
	assert.Equal(t, "eleven_multilingual_v2", cfg.TTS.ModelID)
	assert.NotZero(t, cfg.Engine.FollowUpDelay)
	assert.NotZero(t, cfg.Engine.SessionTTL)
}
