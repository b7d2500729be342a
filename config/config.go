// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port               string
	DatabaseURL        string
	MigrationsDir      string
	SecretKey          string
	AccessTokenExpire  time.Duration
	RefreshTokenExpire time.Duration
	GoogleCloudProject string
	LogLevel           string
	OtelEnabled        bool
	OtelEndpoint       string
	OtelServiceName    string
	OtelSamplingRate   float64
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "./migrations"),
		SecretKey:          strings.TrimSpace(os.Getenv("SECRET_KEY")),
		AccessTokenExpire:  time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTokenExpire: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "atb-backend"),
		OtelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
	}
}

// 既知の弱いシークレットキー。部分一致でも拒否する。
var weakSecretKeys = []string{
	"your-secret-key-here-change-this-in-production",
	"change-this-secret-key-in-production",
	"secret-key-change-this-in-production",
	"default-secret-key-change-me",
	"please-change-this-secret-key",
	strings.Repeat("changeme", 10),
	strings.Repeat("a", 32),
	strings.Repeat("1234567890", 4),
	"abcdefghijklmnopqrstuvwxyz123456",
}

var invalidSecretValues = []string{"false", "true", "none", "null", "secret", "password", "test", "demo"}

// ValidateSecretKey はJWT署名鍵の安全性を検証する。
// サーバー起動時に呼び出し、不正な場合は起動を中断する。
func (c *Config) ValidateSecretKey() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required: set it in your .env file with at least 32 characters")
	}

	// 環境変数の誤設定で入り込みがちな値は長さに関係なく明示的に拒否する
	lower := strings.ToLower(c.SecretKey)
	for _, v := range invalidSecretValues {
		if lower == v {
			return fmt.Errorf("SECRET_KEY appears to be an invalid value: %q", c.SecretKey)
		}
	}

	if len(c.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY is too short: %d characters (at least 32 required)", len(c.SecretKey))
	}
	for _, weak := range weakSecretKeys {
		if strings.Contains(lower, weak) || strings.Contains(weak, lower) {
			return fmt.Errorf("SECRET_KEY is too weak or appears to be a default value")
		}
	}

	// ユニークな文字数が少なすぎる鍵はエントロピー不足として拒否
	unique := make(map[rune]struct{})
	for _, r := range c.SecretKey {
		unique[r] = struct{}{}
	}
	if len(unique) < 8 {
		return fmt.Errorf("SECRET_KEY has low entropy: too many repeated characters")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
