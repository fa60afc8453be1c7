package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Inspection   InspectionConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QUARTERMASTER_APP_ENV" required:"true"`
	Port         string `envconfig:"QUARTERMASTER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUARTERMASTER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUARTERMASTER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"QUARTERMASTER_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"QUARTERMASTER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QUARTERMASTER_DB_DSN"`
	Driver string `envconfig:"QUARTERMASTER_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"QUARTERMASTER_SQLITE_PATH" default:"quartermaster.db"`

	LegacyHost     string `envconfig:"QUARTERMASTER_DB_HOST"`
	LegacyPort     int    `envconfig:"QUARTERMASTER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUARTERMASTER_DB_USER"`
	LegacyPassword string `envconfig:"QUARTERMASTER_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUARTERMASTER_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUARTERMASTER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUARTERMASTER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUARTERMASTER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUARTERMASTER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUARTERMASTER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUARTERMASTER_REDIS_URL"`
	Address      string        `envconfig:"QUARTERMASTER_REDIS_ADDR"`
	Password     string        `envconfig:"QUARTERMASTER_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUARTERMASTER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUARTERMASTER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUARTERMASTER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUARTERMASTER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUARTERMASTER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUARTERMASTER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint is configured. Without one the API
// ignores idempotency keys and the cron worker runs without a lock.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"QUARTERMASTER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUARTERMASTER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"QUARTERMASTER_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the token lifetime used when minting tokens.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUARTERMASTER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUARTERMASTER_AUTO_MIGRATE" default:"false"`
}

type InspectionConfig struct {
	// AutoCloseAfter deactivates an active inspection once its date is older than this.
	AutoCloseAfter time.Duration `envconfig:"QUARTERMASTER_INSPECTION_AUTO_CLOSE_AFTER" default:"72h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"QUARTERMASTER_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"QUARTERMASTER_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = db.SQLitePath
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
