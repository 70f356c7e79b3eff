package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Ledger       LedgerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	BcryptCost              int
	GeneratedPasswordLength int
	LoginMaxAttempts        int
	LoginLockoutMinutes     int

	// Bootstrap administrator created at startup when no account has this username.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// LedgerConfig describes the Fabric gateway peer and the contracts used.
type LedgerConfig struct {
	PeerEndpoint       string
	OverrideAuthority  string
	MSPID              string
	CryptoPath         string
	CertDir            string
	KeyDir             string
	TLSCertPath        string
	ChannelName        string
	ChaincodeName      string
	DataContractName   string
	ConfigContractName string

	EvaluateTimeoutSeconds     int
	EndorseTimeoutSeconds      int
	SubmitTimeoutSeconds       int
	CommitStatusTimeoutSeconds int

	PageSize int
	MaxPages int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ledger-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			ApplicationName: getEnv("APP_NAME", "ledger-gateway"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", devSecret),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			GeneratedPasswordLength: getEnvAsInt("AUTH_GENERATED_PASSWORD_LENGTH", 16),
			LoginMaxAttempts:        getEnvAsInt("AUTH_LOGIN_MAX_ATTEMPTS", 5),
			LoginLockoutMinutes:     getEnvAsInt("AUTH_LOGIN_LOCKOUT_MINUTES", 15),
			AdminUsername:           os.Getenv("AUTH_ADMIN_USERNAME"),
			AdminEmail:              os.Getenv("AUTH_ADMIN_EMAIL"),
			AdminPassword:           os.Getenv("AUTH_ADMIN_PASSWORD"),
		},
		Ledger: LedgerConfig{
			PeerEndpoint:               getEnv("LEDGER_PEER_ENDPOINT", ""),
			OverrideAuthority:          getEnv("LEDGER_OVERRIDE_AUTHORITY", ""),
			MSPID:                      getEnv("LEDGER_MSP_ID", ""),
			CryptoPath:                 getEnv("LEDGER_CRYPTO_PATH", ""),
			CertDir:                    getEnv("LEDGER_CERT_DIR", ""),
			KeyDir:                     getEnv("LEDGER_KEY_DIR", ""),
			TLSCertPath:                getEnv("LEDGER_TLS_CERT_PATH", ""),
			ChannelName:                getEnv("LEDGER_CHANNEL_NAME", "mychannel"),
			ChaincodeName:              getEnv("LEDGER_CHAINCODE_NAME", "medtechchain"),
			DataContractName:           getEnv("LEDGER_DATA_CONTRACT_NAME", "devicedata"),
			ConfigContractName:         getEnv("LEDGER_CONFIG_CONTRACT_NAME", "config"),
			EvaluateTimeoutSeconds:     getEnvAsInt("LEDGER_EVALUATE_TIMEOUT_SECONDS", 5),
			EndorseTimeoutSeconds:      getEnvAsInt("LEDGER_ENDORSE_TIMEOUT_SECONDS", 15),
			SubmitTimeoutSeconds:       getEnvAsInt("LEDGER_SUBMIT_TIMEOUT_SECONDS", 5),
			CommitStatusTimeoutSeconds: getEnvAsInt("LEDGER_COMMIT_STATUS_TIMEOUT_SECONDS", 60),
			PageSize:                   getEnvAsInt("LEDGER_PAGE_SIZE", 100),
			MaxPages:                   getEnvAsInt("LEDGER_MAX_PAGES", 1000),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would make the service unsafe to run.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET must be set")
	}
	if c.App.Env != "development" && c.Auth.JWTSecret == devSecret {
		return fmt.Errorf("AUTH_JWT_SECRET must be overridden in %s", c.App.Env)
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("invalid AUTH_ACCESS_TOKEN_TTL_MINUTES: %d", c.Auth.AccessTokenTTLMinutes)
	}
	if c.Auth.AdminUsername != "" && (c.Auth.AdminPassword == "" || c.Auth.AdminEmail == "") {
		return errors.New("AUTH_ADMIN_EMAIL and AUTH_ADMIN_PASSWORD are required with AUTH_ADMIN_USERNAME")
	}
	if c.Ledger.PageSize <= 0 {
		return fmt.Errorf("invalid LEDGER_PAGE_SIZE: %d", c.Ledger.PageSize)
	}
	if c.Ledger.MaxPages < 0 {
		return fmt.Errorf("invalid LEDGER_MAX_PAGES: %d", c.Ledger.MaxPages)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LoginLockout returns the window failed logins are counted in.
func (a AuthConfig) LoginLockout() time.Duration {
	return time.Duration(a.LoginLockoutMinutes) * time.Minute
}

// BootstrapAdmin reports whether an administrator account should be ensured at startup.
func (a AuthConfig) BootstrapAdmin() bool {
	return a.AdminUsername != ""
}

// Enabled reports whether a peer endpoint was configured.
func (l LedgerConfig) Enabled() bool {
	return l.PeerEndpoint != ""
}

func (l LedgerConfig) EvaluateTimeout() time.Duration {
	return seconds(l.EvaluateTimeoutSeconds)
}

func (l LedgerConfig) EndorseTimeout() time.Duration {
	return seconds(l.EndorseTimeoutSeconds)
}

func (l LedgerConfig) SubmitTimeout() time.Duration {
	return seconds(l.SubmitTimeoutSeconds)
}

func (l LedgerConfig) CommitStatusTimeout() time.Duration {
	return seconds(l.CommitStatusTimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
