package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix marks environment overrides. WEBRING_DATABASE__URL maps to
// database.url.
const EnvPrefix = "WEBRING_"

type HTTP struct {
	Address            string        `koanf:"address" validate:"required"`
	Port               int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout        time.Duration `koanf:"read_timeout" validate:"gt=0"`
	ReadHeaderTimeout  time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout        time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	TrustProxy         bool          `koanf:"trust_proxy"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
}

type Database struct {
	URL            string        `koanf:"url" validate:"required"`
	MinConnections int           `koanf:"min_connections" validate:"min=0,ltefield=MaxConnections"`
	MaxConnections int           `koanf:"max_connections" validate:"min=1"`
	AcquireTimeout time.Duration `koanf:"acquire_timeout" validate:"gt=0"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"gt=0"`
}

type Session struct {
	CookieName      string        `koanf:"cookie_name" validate:"required"`
	CSRFCookieName  string        `koanf:"csrf_cookie_name" validate:"required"`
	CookieSecure    bool          `koanf:"cookie_secure"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	AbsoluteTimeout time.Duration `koanf:"absolute_timeout" validate:"gtefield=IdleTimeout"`
	PurgeInterval   time.Duration `koanf:"purge_interval" validate:"gt=0"`
}

type Auth struct {
	PasswordMinLength int `koanf:"password_min_length" validate:"min=8"`
	PasswordMaxLength int `koanf:"password_max_length" validate:"gtefield=PasswordMinLength"`
	HashWorkers       int `koanf:"hash_workers" validate:"min=1"`
}

type Join struct {
	VerifyOwnership bool          `koanf:"verify_ownership"`
	VerifyPath      string        `koanf:"verify_path" validate:"required,startswith=/"`
	VerifyTimeout   time.Duration `koanf:"verify_timeout" validate:"gt=0"`

	// AllowPrivateHosts lets verification reach loopback and private
	// networks. Only for rings whose members live on the same LAN.
	AllowPrivateHosts bool `koanf:"allow_private_hosts"`
	MaxRedirects      int  `koanf:"max_redirects" validate:"min=0,max=10"`
}

type Notify struct {
	Mode     string        `koanf:"mode" validate:"oneof=log smtp"`
	SMTPHost string        `koanf:"smtp_host" validate:"required_if=Mode smtp"`
	SMTPPort int           `koanf:"smtp_port" validate:"min=1,max=65535"`
	From     string        `koanf:"from" validate:"required,email"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

type Log struct {
	Dir     string `koanf:"dir"`
	Level   string `koanf:"level" validate:"oneof=debug info warn error"`
	Console bool   `koanf:"console"`
}

type Ring struct {
	Name      string `koanf:"name" validate:"required"`
	PublicURL string `koanf:"public_url" validate:"omitempty,url"`
}

type Bootstrap struct {
	Username string `koanf:"username"`
	Email    string `koanf:"email" validate:"required_with=Username,omitempty,email"`
	Password string `koanf:"password" validate:"required_with=Username"`
}

type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Session   Session   `koanf:"session"`
	Auth      Auth      `koanf:"auth"`
	Join      Join      `koanf:"join"`
	Notify    Notify    `koanf:"notify"`
	Log       Log       `koanf:"log"`
	Ring      Ring      `koanf:"ring"`
	Bootstrap Bootstrap `koanf:"bootstrap"`
}

func Default() Config {
	return Config{
		HTTP: HTTP{
			Address:           "0.0.0.0",
			Port:              10983,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Database: Database{
			URL:            "sqlite://data.db",
			MinConnections: 5,
			MaxConnections: 5,
			AcquireTimeout: 10 * time.Second,
			IdleTimeout:    300 * time.Second,
		},
		Session: Session{
			CookieName:      "webring_session",
			CSRFCookieName:  "webring_csrf",
			IdleTimeout:     30 * time.Minute,
			AbsoluteTimeout: 24 * time.Hour,
			PurgeInterval:   15 * time.Minute,
		},
		Auth: Auth{
			PasswordMinLength: 12,
			PasswordMaxLength: 128,
			HashWorkers:       runtime.NumCPU(),
		},
		Join: Join{
			VerifyOwnership: true,
			VerifyPath:      "/webringer/auth",
			VerifyTimeout:   8 * time.Second,
			MaxRedirects:    3,
		},
		Notify: Notify{
			Mode:     "log",
			SMTPHost: "127.0.0.1",
			SMTPPort: 25,
			From:     "webring@localhost.localdomain",
			Timeout:  10 * time.Second,
		},
		Log: Log{
			Level:   "info",
			Console: true,
		},
		Ring: Ring{
			Name: "webring",
		},
	}
}

var validate = validator.New()

// Load layers the optional .env file, the optional YAML file at path and
// WEBRING_ environment overrides over Default, then validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		zap.S().Debugw("config file loaded", "file", path)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load config env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if !cfg.Session.CookieSecure && !isLocalListen(cfg.HTTP.Address) {
		zap.S().Warnw("session cookies are not marked Secure on a non-local listen address",
			"address", cfg.HTTP.Address)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.HTTP.Address, strconv.Itoa(c.HTTP.Port))
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "CONFIG" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return a == "127.0.0.1" || a == "localhost" || a == "::1" || a == "[::1]"
}
