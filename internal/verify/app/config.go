package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`                       // Environment (dev, staging, prod)
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`                // Log level (debug, info, warn, error)
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`               // Log format (json, text)
	Port                 int           `env:"PORT" envDefault:"8080"`                     // HTTP server port
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`     // Graceful shutdown timeout
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"5m"`      // Session/limiter sweep interval
	DatabaseFile         string        `env:"DOORMAN_DATABASE_FILE" envDefault:"doorman.db"`

	OperatorID  string `env:"DOORMAN_OPERATOR_ID,notEmpty"`  // Required: the single decision operator
	TokenSecret string `env:"DOORMAN_TOKEN_SECRET,notEmpty"` // Required: HS256 secret for API tokens
	TokenIssuer string `env:"DOORMAN_TOKEN_ISSUER" envDefault:"doorman"`

	SessionTTL time.Duration `env:"DOORMAN_SESSION_TTL" envDefault:"10m"` // Keypad session lifetime
	AutoSubmit bool          `env:"DOORMAN_AUTO_SUBMIT" envDefault:"true"`

	PrivacyPolicy  string `env:"DOORMAN_PRIVACY_POLICY" envDefault:"fingerprint"` // cleartext, fingerprint, sealed
	PrivacyKeyFile string `env:"DOORMAN_PRIVACY_KEY_FILE" envDefault:"doorman.key"`

	StartLimit    int           `env:"DOORMAN_START_LIMIT" envDefault:"5"`
	StartWindow   time.Duration `env:"DOORMAN_START_WINDOW" envDefault:"1m"`
	ContactLimit  int           `env:"DOORMAN_CONTACT_LIMIT" envDefault:"3"`
	ContactWindow time.Duration `env:"DOORMAN_CONTACT_WINDOW" envDefault:"1m"`
}

func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
