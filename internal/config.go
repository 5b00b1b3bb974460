package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	GRPCPort int    `env:"GRPC_PORT,default=9090"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	MaxDeliveryFailures  int           `env:"MAX_DELIVERY_FAILURES,default=3"`
	IdleTimeout          time.Duration `env:"IDLE_TIMEOUT,default=30m"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=16384"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4000"`

	HistoryDefaultLimit int `env:"HISTORY_DEFAULT_LIMIT,default=50"`
	HistoryMaxLimit     int `env:"HISTORY_MAX_LIMIT,default=100"`

	// Comma separated banned words, empty disables moderation
	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	ValueLogGCInterval time.Duration `env:"VALUE_LOG_GC_INTERVAL,default=10m"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=1m"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=2s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	positive := map[string]int64{
		"PORT":                   int64(c.Port),
		"GRPC_PORT":              int64(c.GRPCPort),
		"CONNECTION_BUFFER_SIZE": int64(c.ConnectionBufferSize),
		"MAX_MESSAGE_SIZE":       c.MaxMessageSize,
		"MAX_CONTENT_LENGTH":     int64(c.MaxContentLength),
		"HISTORY_DEFAULT_LIMIT":  int64(c.HistoryDefaultLimit),
		"HISTORY_MAX_LIMIT":      int64(c.HistoryMaxLimit),
		"DELIVERY_TIMEOUT":       int64(c.DeliveryTimeout),
		"IDLE_TIMEOUT":           int64(c.IdleTimeout),
		"PONG_WAIT":              int64(c.PongWait),
		"WRITE_WAIT":             int64(c.WriteWait),
		"VALUE_LOG_GC_INTERVAL":  int64(c.ValueLogGCInterval),
		"METRIC_INTERVAL":        int64(c.MetricInterval),
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	if c.HistoryDefaultLimit > c.HistoryMaxLimit {
		return fmt.Errorf("HISTORY_DEFAULT_LIMIT (%d) exceeds HISTORY_MAX_LIMIT (%d)", c.HistoryDefaultLimit, c.HistoryMaxLimit)
	}
	if c.MaxDeliveryFailures < 0 {
		return fmt.Errorf("MAX_DELIVERY_FAILURES must not be negative, 0 disables eviction")
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	return nil
}

// CensoredWordList splits CENSORED_WORDS, dropping blank entries.
func (c Config) CensoredWordList() []string {
	return lo.Compact(lo.Map(strings.Split(c.CensoredWords, ","), func(word string, _ int) string {
		return strings.TrimSpace(word)
	}))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
