package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ConfigFile is the default configuration path written by the wizard.
const ConfigFile = ".canteen.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .canteen.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to canteen! Let's configure the backend.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Environment.
	envPrompt := promptui.Select{
		Label: "Select environment",
		Items: []string{
			"local      : text logs, debug level",
			"development: JSON logs, info level",
			"production : JSON logs, warnings only",
		},
	}
	envIdx, _, err := envPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("environment selection: %w", err)
	}
	cfg.Env = []Env{EnvLocal, EnvDevelopment, EnvProduction}[envIdx]

	// 2. Port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 3. Allowed origins.
	originsPrompt := promptui.Prompt{
		Label:   "Allowed CORS origins (comma-separated)",
		Default: strings.Join(DefaultOrigins, ","),
	}
	originsStr, err := originsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("allowed origins: %w", err)
	}
	cfg.Server.AllowedOrigins = splitAndTrim(originsStr)

	// 4. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: cfg.Database.Path,
	}
	cfg.Database.Path, err = dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	// 5. Mail.
	mailPrompt := promptui.Prompt{
		Label:     "Send mail over SMTP",
		IsConfirm: true,
	}
	if _, err := mailPrompt.Run(); err == nil {
		cfg.Mail.Enabled = true
		hostPrompt := promptui.Prompt{Label: "SMTP host"}
		if cfg.Mail.Host, err = hostPrompt.Run(); err != nil {
			return nil, fmt.Errorf("smtp host: %w", err)
		}
		userPrompt := promptui.Prompt{Label: "SMTP username"}
		if cfg.Mail.Username, err = userPrompt.Run(); err != nil {
			return nil, fmt.Errorf("smtp username: %w", err)
		}
		fromPrompt := promptui.Prompt{Label: "From address", Default: cfg.Mail.From}
		if cfg.Mail.From, err = fromPrompt.Run(); err != nil {
			return nil, fmt.Errorf("from address: %w", err)
		}
	}

	// 6. NATS.
	natsPrompt := promptui.Prompt{
		Label:   "NATS URL for events (leave blank to disable)",
		Default: "",
	}
	cfg.Events.NATSURL, err = natsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("nats url: %w", err)
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("generating jwt secret: %w", err)
	}
	cfg.Auth.JWTSecret = secret

	if cfg.Mail.Enabled {
		fmt.Printf("\nNote: set %sMAIL__PASSWORD in your environment before running canteen server.\n", EnvPrefix)
	}

	if err := cfg.Save(ConfigFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", ConfigFile)
	return cfg, nil
}

func validatePort(s string) error {
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
