package internal

import (
	"testing"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("JWT_SECRET", "a_strong_and_long_secret")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(8080, config.Port)
	req.Equal(50, config.HistoryDefaultLimit)
	req.Equal(100, config.HistoryMaxLimit)
	req.Equal(3, config.MaxDeliveryFailures)
	req.Equal("*", config.CharReplacement)
	req.Empty(config.CensoredWordList())
	req.NoError(config.Validate())
}

func TestConfig_Missing_Required(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "a_strong_and_long_secret")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.Error(err)
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("JWT_SECRET", "a_strong_and_long_secret")
	var valid Config
	_, err := env.UnmarshalFromEnviron(&valid)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"default above max", func(c *Config) { c.HistoryDefaultLimit = c.HistoryMaxLimit + 1 }},
		{"no pong wait", func(c *Config) { c.PongWait = 0 }},
		{"negative failures", func(c *Config) { c.MaxDeliveryFailures = -1 }},
		{"empty buffer", func(c *Config) { c.ConnectionBufferSize = 0 }},
		{"long replacement", func(c *Config) { c.CharReplacement = "**" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestConfig_CensoredWordList(t *testing.T) {
	req := require.New(t)
	config := Config{CensoredWords: " scam, ,western union,"}

	req.Equal([]string{"scam", "western union"}, config.CensoredWordList())
}
