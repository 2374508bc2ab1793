package config

import "time"

// Env selects the logging profile.
type Env string

const (
	EnvLocal       Env = "local"
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

// Config is the top-level canteen configuration, corresponding to .canteen.yml.
type Config struct {
	Env      Env            `yaml:"env" koanf:"env"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Database DatabaseConfig `yaml:"database" koanf:"database"`
	Auth     AuthConfig     `yaml:"auth" koanf:"auth"`
	Orders   OrdersConfig   `yaml:"orders" koanf:"orders"`
	Mail     MailConfig     `yaml:"mail" koanf:"mail"`
	Events   EventsConfig   `yaml:"events" koanf:"events"`
	Metrics  MetricsConfig  `yaml:"metrics" koanf:"metrics"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	AllowAll       bool     `yaml:"allow_all" koanf:"allow_all"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// AuthConfig controls token signing and password reset.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" koanf:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" koanf:"token_ttl"`
	OTPTTL    time.Duration `yaml:"otp_ttl" koanf:"otp_ttl"`
}

// OrdersConfig holds order lifecycle settings.
type OrdersConfig struct {
	CancelWindow time.Duration `yaml:"cancel_window" koanf:"cancel_window"`
}

// MailConfig holds SMTP settings. When disabled, mail is written to the log.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled" koanf:"enabled"`
	Host     string `yaml:"host" koanf:"host"`
	Port     int    `yaml:"port" koanf:"port"`
	Username string `yaml:"username" koanf:"username"`
	Password string `yaml:"password" koanf:"password"`
	From     string `yaml:"from" koanf:"from"`
}

// EventsConfig points at an optional NATS server. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" koanf:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix" koanf:"subject_prefix"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
}
