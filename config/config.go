package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/configparser"
	"github.com/navatransportes/nava-fleet/pkg/logger"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: auth-service | admin-service | driver-service | all")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrInvalidLogLevel = errors.New("invalid log level, use DEBUG, INFO, WARN or ERROR")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode

		Database          DatabaseConfig
		RabbitMQ          RabbitMQConfig
		Redis             RedisConfig
		HTTP              HTTPConfig
		Services          ServicesConfig
		Auth              Auth
		ExternalAPIConfig ExternalAPIConfig
		Export            ExportConfig
		Log               LogConfig
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"nava_user"`
		Password string `env:"DATABASE_PASSWORD" default:"nava_pass"`
		Database string `env:"DATABASE_DATABASE" default:"nava_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"true"`
	}

	RedisConfig struct {
		Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
		Enabled  bool   `env:"REDIS_ENABLED" default:"true"`
	}

	HTTPConfig struct {
		// BasePath is the prefix every route is mounted under, the web client uses /nava.
		BasePath       string        `env:"HTTP_BASE_PATH" default:"/nava"`
		AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`
		ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" default:"15s"`
		WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" default:"30s"`
	}

	ServicesConfig struct {
		AuthService   string `env:"SERVICES_AUTH_SERVICE" default:"3005"`
		AdminService  string `env:"SERVICES_ADMIN_SERVICE" default:"3004"`
		DriverService string `env:"SERVICES_DRIVER_SERVICE" default:"3001"`
		AllInOne      string `env:"SERVICES_ALL" default:"3000"`
	}

	Auth struct {
		AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" default:"15m"`
		RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" default:"168h"`
		JWTSecret       string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
		BcryptCost      int           `env:"AUTH_BCRYPT_COST" default:"10"`
	}

	ExternalAPIConfig struct {
		LocationIQapiKey string `env:"LOCATIONIQ_API_KEY"`
		LocationIQURL    string `env:"LOCATIONIQ_URL" default:"https://us1.locationiq.com"`
		// MapEmbedURL is formatted with latitude and longitude.
		MapEmbedURL string `env:"MAP_EMBED_URL" default:"https://maps.google.com/maps?q=%f,%f&z=15&output=embed"`
	}

	ExportConfig struct {
		CompanyName string `env:"EXPORT_COMPANY_NAME" default:"Nava Transportes"`
		MaxRows     int    `env:"EXPORT_MAX_ROWS" default:"5000"`
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"DEBUG"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, lifetime, idle time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if !logger.ValidateLogLevel(cfg.Log.Level) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Log.Level)
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	mode := types.ServiceMode(*modeFlag)
	if !mode.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	cfg.Mode = mode

	return nil
}

// Port returns the HTTP port of the configured service mode.
func (c Config) Port() string {
	switch c.Mode {
	case types.AuthService:
		return c.Services.AuthService
	case types.AdminService:
		return c.Services.AdminService
	case types.DriverService:
		return c.Services.DriverService
	default:
		return c.Services.AllInOne
	}
}

func (c RedisConfig) GetAddr() string     { return c.Addr }
func (c RedisConfig) GetPassword() string { return c.Password }
func (c RedisConfig) GetDB() int          { return c.DB }
