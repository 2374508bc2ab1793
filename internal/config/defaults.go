package config

import "time"

// DefaultJWTSecret signs tokens in local setups only. Production configs
// must replace it.
const DefaultJWTSecret = "change-me-please-change-me-please"

// DefaultOrigins are the frontend dev servers allowed by CORS.
var DefaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Env: EnvLocal,
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: DefaultOrigins,
		},
		Database: DatabaseConfig{
			Path: "data/canteen.db",
		},
		Auth: AuthConfig{
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  10 * time.Hour,
			OTPTTL:    15 * time.Minute,
		},
		Orders: OrdersConfig{
			CancelWindow: 5 * time.Minute,
		},
		Mail: MailConfig{
			Port: 587,
			From: "canteen@localhost",
		},
		Events: EventsConfig{
			SubjectPrefix: "canteen",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
