package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("siba-chat version %s, commit %s, built at %s", version, commit, date)
}

// Kind selects which half of the configuration must validate.
type Kind string

const (
	KindClient Kind = "client"
	KindServer Kind = "server"
)

type Config struct {
	Client  ClientConfig  `mapstructure:"client"`
	Server  ServerConfig  `mapstructure:"server"`
	Google  GoogleConfig  `mapstructure:"google"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ClientConfig is consumed by the terminal session manager. Domain and
// DomainHeader are injected as-is and never derived from one another.
type ClientConfig struct {
	APIBase                string        `mapstructure:"api_base"`
	Domain                 string        `mapstructure:"domain"`
	DomainHeader           string        `mapstructure:"domain_header"`
	SessionFile            string        `mapstructure:"session_file"`
	HandoffTimeout         time.Duration `mapstructure:"handoff_timeout"`
	HandoffPollInterval    time.Duration `mapstructure:"handoff_poll_interval"`
	SessionCheckPath       string        `mapstructure:"session_check_path"`
	SessionTerminationPath string        `mapstructure:"session_termination_path"`
	CallbackPath           string        `mapstructure:"callback_path"`
	LandingRoute           string        `mapstructure:"landing_route"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Issuer       string `mapstructure:"issuer"`
}

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FrontendURL  string        `mapstructure:"frontend_url"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	HandoffTTL   time.Duration `mapstructure:"handoff_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	Store        StoreKind     `mapstructure:"store"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisPrefix  string        `mapstructure:"redis_prefix"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.api_base", "http://localhost:8000")
	v.SetDefault("client.domain", "iba-suk.edu.pk")
	v.SetDefault("client.domain_header", "@iba-suk.edu.pk")
	v.SetDefault("client.handoff_timeout", 2*time.Minute)
	v.SetDefault("client.handoff_poll_interval", 2*time.Second)
	v.SetDefault("client.session_check_path", "/api/auth/me")
	v.SetDefault("client.session_termination_path", "/api/auth/logout")
	v.SetDefault("client.callback_path", "/api/auth/google/callback")
	v.SetDefault("client.landing_route", "home")

	v.SetDefault("client.session_file", "")

	// keys without a real default still need registering so env overrides reach Unmarshal
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.issuer", "https://accounts.google.com")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.timeout", 20*time.Second)
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000", "https://siba-chatbot.vercel.app"})
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", time.Hour)
	v.SetDefault("server.handoff_ttl", 2*time.Minute)
	// Secure cookies never travel over plain http, so only https deployments turn this on
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.store", string(StoreMemory))
	v.SetDefault("server.redis_addr", "localhost:6379")
	v.SetDefault("server.redis_prefix", "siba")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "")
}

// BindFlags registers the flags shared by every command. The caller parses them.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a config.yaml file")
	flags.String("api-base", "", "Base URL of the auth backend")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
}

var flagKeys = map[string]string{
	"api-base":  "client.api_base",
	"log-level": "logging.level",
}

// Load reads defaults, config files, environment and flags, in increasing
// precedence, then validates the half of the configuration named by kind.
func Load(flags *pflag.FlagSet, kind Kind) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIBA_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "siba-chat"))
		}
		v.AddConfigPath("/etc/siba-chat")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config that is missing is an error, a missing default file is not
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Client.SessionFile == "" {
		cfg.Client.SessionFile = defaultPath(os.UserConfigDir, "session.yaml")
	}
	if cfg.Logging.OutputPath == "" && kind == KindClient {
		// the TUI owns stdout, so client logs always go to a file
		cfg.Logging.OutputPath = defaultPath(os.UserCacheDir, "siba-chat.log")
	}

	if err := cfg.Validate(kind); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isPlainHTTP(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "http://")
}

func defaultPath(base func() (string, error), name string) string {
	dir, err := base()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "siba-chat", name)
}

// Validate checks the settings required by kind.
func (c *Config) Validate(kind Kind) error {
	if c.Client.Domain == "" || c.Client.DomainHeader == "" {
		return fmt.Errorf("client.domain and client.domain_header are required")
	}
	if !strings.EqualFold(c.Client.DomainHeader, "@"+c.Client.Domain) {
		return fmt.Errorf("client.domain_header %q does not match client.domain %q", c.Client.DomainHeader, c.Client.Domain)
	}

	switch kind {
	case KindClient:
		if c.Client.APIBase == "" {
			return fmt.Errorf("client.api_base is required, please adjust the config or pass --api-base or SIBA_CHAT_CLIENT_API_BASE environment variable")
		}
		if c.Server.CookieSecure && isPlainHTTP(c.Client.APIBase) {
			return fmt.Errorf("server.cookie_secure requires an https client.api_base, the session cookie would never be sent to %s", c.Client.APIBase)
		}
	case KindServer:
		if c.Server.CookieSecure && isPlainHTTP(c.Server.FrontendURL) {
			return fmt.Errorf("server.cookie_secure requires an https server.frontend_url, got %s", c.Server.FrontendURL)
		}
		if c.Server.JWTSecret == "" {
			return fmt.Errorf("server.jwt_secret is required, please set SIBA_CHAT_SERVER_JWT_SECRET")
		}
		if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
			return fmt.Errorf("google.client_id and google.client_secret are required for the code flow")
		}
		switch c.Server.Store {
		case StoreMemory, StoreRedis:
		default:
			return fmt.Errorf("unsupported server.store %q", c.Server.Store)
		}
	default:
		return fmt.Errorf("unknown config kind %q", kind)
	}
	return nil
}
