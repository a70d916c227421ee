package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "CONFIG_PATH"
	dotEnvPath    = ".env"
)

type Server struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type Stripe struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	// overrides the Stripe API base URL, only useful against stripe-mock
	APIBaseURL string `yaml:"api_base_url"`
}

type Checkout struct {
	SuccessURL         string   `yaml:"success_url"`
	CancelURL          string   `yaml:"cancel_url"`
	Currency           string   `yaml:"currency"`
	PaymentMethodTypes []string `yaml:"payment_method_types"`
}

type Provisioning struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker Breaker       `yaml:"breaker"`
}

type Breaker struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (p Postgres) Enabled() bool {
	return p.Host != ""
}

type Catalog struct {
	Prices  map[string]int64  `yaml:"prices"`
	Aliases map[string]string `yaml:"aliases"`
}

type Static struct {
	PagePath string `yaml:"page_path"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	// serves fake checkout sessions and skips the provisioning endpoint
	Mocked       bool         `yaml:"mocked"`
	Server       Server       `yaml:"server"`
	Stripe       Stripe       `yaml:"stripe"`
	Checkout     Checkout     `yaml:"checkout"`
	Provisioning Provisioning `yaml:"provisioning"`
	Postgres     Postgres     `yaml:"postgres"`
	Catalog      Catalog      `yaml:"catalog"`
	Static       Static       `yaml:"static"`
	Logging      Logging      `yaml:"logging"`
}

// String hides secrets so the config can be printed at startup.
func (c Config) String() string {
	redacted := c
	redacted.Stripe.SecretKey = redact(c.Stripe.SecretKey)
	redacted.Stripe.WebhookSecret = redact(c.Stripe.WebhookSecret)
	redacted.Postgres.Password = redact(c.Postgres.Password)
	type plain Config
	return fmt.Sprintf("%+v", plain(redacted))
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

var (
	mu     sync.RWMutex
	loaded *Config
)

func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "3000",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Checkout: Checkout{
			Currency:           "mxn",
			PaymentMethodTypes: []string{"card", "oxxo"},
		},
		Provisioning: Provisioning{
			Timeout: 10 * time.Second,
			Breaker: Breaker{
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
		Postgres: Postgres{
			SSLMode: "disable",
		},
		Static: Static{
			PagePath: "public/pago.html",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// returns the config file path from CONFIG_PATH, empty when unset
func GetConfigPath() (string, error) {
	path := os.Getenv(configPathEnv)
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config file %s: %w", path, err)
	}
	return path, nil
}

// loads .env, the YAML file at configPath (if any) and environment overrides
func LoadConfig(configPath string) error {
	if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", dotEnvPath, err)
	}

	c := Defaults()
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&c)

	if err := c.Validate(); err != nil {
		return err
	}

	mu.Lock()
	loaded = &c
	mu.Unlock()
	return nil
}

// returns a copy of the loaded config
func GetConfig() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if loaded == nil {
		return nil, fmt.Errorf("config has not been loaded")
	}
	c := *loaded
	return &c, nil
}

func applyEnv(c *Config) {
	setString(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&c.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&c.Checkout.SuccessURL, "SUCCESS_URL")
	setString(&c.Checkout.CancelURL, "CANCEL_URL")
	setString(&c.Provisioning.URL, "UPDATE_NIP_URL")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Host, "HOST")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Postgres.Host, "POSTGRES_HOST")
	setString(&c.Postgres.Username, "POSTGRES_USER")
	setString(&c.Postgres.Password, "POSTGRES_PASSWORD")
	setString(&c.Postgres.Database, "POSTGRES_DATABASE")
	if v := os.Getenv("MOCKED"); v != "" {
		c.Mocked = v == "true" || v == "1"
	}
}

func setString(field *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*field = v
	}
}

func (c *Config) Validate() error {
	var missing []string
	if c.Server.Port == "" {
		missing = append(missing, "server.port (PORT)")
	}
	if !c.Mocked {
		if c.Stripe.SecretKey == "" {
			missing = append(missing, "stripe.secret_key (STRIPE_SECRET_KEY)")
		}
		if c.Provisioning.URL == "" {
			missing = append(missing, "provisioning.url (UPDATE_NIP_URL)")
		}
	}
	if c.Checkout.SuccessURL == "" {
		missing = append(missing, "checkout.success_url (SUCCESS_URL)")
	}
	if c.Checkout.CancelURL == "" {
		missing = append(missing, "checkout.cancel_url (CANCEL_URL)")
	}
	if c.Checkout.Currency == "" {
		missing = append(missing, "checkout.currency")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if len(c.Checkout.PaymentMethodTypes) == 0 {
		return fmt.Errorf("checkout.payment_method_types must not be empty")
	}
	if c.Postgres.Enabled() && c.Postgres.Database == "" {
		return fmt.Errorf("postgres.database is required when postgres.host is set")
	}
	return nil
}
