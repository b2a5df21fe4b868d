package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret      string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer      string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience    string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	InvitationCode string        `mapstructure:"invitation_code" yaml:"invitation_code"`

	MaxMessageBytes  int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	HandlerTimeout   time.Duration `mapstructure:"handler_timeout" yaml:"handler_timeout"`
	HistoryLimit     int           `mapstructure:"history_limit" yaml:"history_limit"`
	SendBuffer       int           `mapstructure:"send_buffer" yaml:"send_buffer"`

	RateLimitPerMinute     int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AuthRateLimitPerMinute int    `mapstructure:"auth_rate_limit_per_minute" yaml:"auth_rate_limit_per_minute"`
	RedisAddr              string `mapstructure:"redis_addr" yaml:"redis_addr"`

	UserCacheSize int           `mapstructure:"user_cache_size" yaml:"user_cache_size"`
	UserCacheTTL  time.Duration `mapstructure:"user_cache_ttl" yaml:"user_cache_ttl"`

	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		ReadHeaderTimeout:      5 * time.Second,
		ShutdownTimeout:        5 * time.Second,
		LogLevel:               "info",
		LogFormat:              "console",
		DatabasePath:           "wirechat.db",
		JWTSecret:              "change-me",
		JWTIssuer:              "wirechat",
		JWTAudience:            "wirechat-clients",
		JWTTTL:                 7 * 24 * time.Hour,
		MaxMessageBytes:        64 << 10,
		HandshakeTimeout:       10 * time.Second,
		HandlerTimeout:         10 * time.Second,
		HistoryLimit:           30,
		SendBuffer:             64,
		RateLimitPerMinute:     120,
		AuthRateLimitPerMinute: 20,
		UserCacheSize:          1024,
		UserCacheTTL:           time.Minute,
		MetricsEnabled:         true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Booleans cannot be told apart from unset and are left alone.
func (c *Config) UpdateFrom(other Config) {
	setString(&c.Addr, other.Addr)
	setDuration(&c.ReadHeaderTimeout, other.ReadHeaderTimeout)
	setDuration(&c.ShutdownTimeout, other.ShutdownTimeout)
	setString(&c.LogLevel, other.LogLevel)
	setString(&c.LogFormat, other.LogFormat)
	setString(&c.DatabasePath, other.DatabasePath)
	setString(&c.JWTSecret, other.JWTSecret)
	setString(&c.JWTIssuer, other.JWTIssuer)
	setString(&c.JWTAudience, other.JWTAudience)
	setDuration(&c.JWTTTL, other.JWTTTL)
	setString(&c.InvitationCode, other.InvitationCode)
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	setDuration(&c.HandshakeTimeout, other.HandshakeTimeout)
	setDuration(&c.HandlerTimeout, other.HandlerTimeout)
	setInt(&c.HistoryLimit, other.HistoryLimit)
	setInt(&c.SendBuffer, other.SendBuffer)
	setInt(&c.RateLimitPerMinute, other.RateLimitPerMinute)
	setInt(&c.AuthRateLimitPerMinute, other.AuthRateLimitPerMinute)
	setString(&c.RedisAddr, other.RedisAddr)
	setInt(&c.UserCacheSize, other.UserCacheSize)
	setDuration(&c.UserCacheTTL, other.UserCacheTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
