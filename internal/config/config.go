package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	// RedisAddr enables the redis presence backend when set; otherwise
	// online flags go to the main database.
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`

	// DefaultRoom is joined automatically on session registration.
	// Empty disables the implicit join.
	DefaultRoom string `mapstructure:"default_room" yaml:"default_room"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	// SendRateLimit caps inbound events per connection per minute.
	// Zero disables the limit.
	SendRateLimit int `mapstructure:"send_rate_limit" yaml:"send_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "roomcast.db",
		DefaultRoom:       "general",
		JWTSecret:         "change-me",
		JWTIssuer:         "roomcast",
		JWTAudience:       "roomcast",
		MaxMessageBytes:   1 << 20,
		SendRateLimit:     120,
	}
}
