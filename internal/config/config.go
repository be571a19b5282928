package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt formats configuration errors
	"os"      // os provides access to environment variables and the config file
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
	"time"    // time holds session and purge durations

	"gopkg.in/yaml.v3" // yaml decodes the optional config file
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  An optional YAML file named by CONFIG_FILE may
// provide the same keys; environment variables always win over the file.
type Config struct {
	Env             string        `yaml:"app_env"`                // application environment (e.g. "dev", "prod")
	Port            string        `yaml:"app_port"`               // HTTP port to listen on
	LogLevel        string        `yaml:"log_level"`              // zerolog level name
	DBDriver        string        `yaml:"db_driver"`              // "mysql" or "sqlite"
	DBUser          string        `yaml:"db_user"`                // database username
	DBPass          string        `yaml:"db_pass"`                // database password (optional)
	DBHost          string        `yaml:"db_host"`                // database host address
	DBPort          string        `yaml:"db_port"`                // database port number
	DBName          string        `yaml:"db_name"`                // database name
	DBPath          string        `yaml:"db_path"`                // sqlite database file
	JWTSecret       string        `yaml:"jwt_secret"`             // secret used to sign JWTs
	AccessTTLMin    int           `yaml:"access_token_ttl_min"`   // access token time-to-live in minutes
	RefreshTTLDays  int           `yaml:"refresh_token_ttl_days"` // refresh token TTL for remembered logins
	SessionTTLHours int           `yaml:"session_ttl_hours"`      // refresh token TTL when remember is off
	PasswordHasher  string        `yaml:"password_hasher"`        // "bcrypt" or "argon2id"
	BcryptCost      int           `yaml:"bcrypt_cost"`            // bcrypt cost for password hashing
	AdminUsernames  []string      `yaml:"admin_usernames"`        // users granted the ADMIN role
	BoxExclusive    bool          `yaml:"box_exclusive"`          // one open storage record per box
	PurgeSchedule   string        `yaml:"token_purge_schedule"`   // cron spec for the refresh token janitor
	AMQPURL         string        `yaml:"rabbitmq_url"`           // broker for activity events; empty disables publishing
	ActivityLogDir  string        `yaml:"activity_log_dir"`       // where the activity consumer appends its log
	RequestTimeout  time.Duration `yaml:"request_timeout"`        // per-request database deadline
}

// Load reads the optional config file, then environment variables, and
// returns a validated Config.  Missing required values are reported as an
// error naming the variable.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Env:             "dev",
		Port:            "8080",
		LogLevel:        "info",
		DBDriver:        "mysql",
		DBPath:          "kronos.db",
		AccessTTLMin:    15,
		RefreshTTLDays:  30,
		SessionTTLHours: 12,
		PasswordHasher:  "bcrypt",
		BcryptCost:      12,
		PurgeSchedule:   "@hourly",
		ActivityLogDir:  "logs",
		RequestTimeout:  5 * time.Second,
	}
}

// applyEnv overrides cfg with every variable that is set.
func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %q", key, v)
		}
		*dst = n
		return nil
	}

	str("APP_ENV", &cfg.Env)
	str("APP_PORT", &cfg.Port)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("DB_DRIVER", &cfg.DBDriver)
	str("DB_USER", &cfg.DBUser)
	str("DB_PASS", &cfg.DBPass)
	str("DB_HOST", &cfg.DBHost)
	str("DB_PORT", &cfg.DBPort)
	str("DB_NAME", &cfg.DBName)
	str("DB_PATH", &cfg.DBPath)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("PASSWORD_HASHER", &cfg.PasswordHasher)
	str("TOKEN_PURGE_SCHEDULE", &cfg.PurgeSchedule)
	str("AMQP_URL", &cfg.AMQPURL)
	str("RABBITMQ_URL", &cfg.AMQPURL)
	str("ACTIVITY_LOG_DIR", &cfg.ActivityLogDir)
	for key, dst := range map[string]*int{
		"ACCESS_TOKEN_TTL_MIN":   &cfg.AccessTTLMin,
		"REFRESH_TOKEN_TTL_DAYS": &cfg.RefreshTTLDays,
		"SESSION_TTL_HOURS":      &cfg.SessionTTLHours,
		"BCRYPT_COST":            &cfg.BcryptCost,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	if v := os.Getenv("ADMIN_USERNAMES"); v != "" {
		cfg.AdminUsernames = splitList(v)
	}
	cfg.BoxExclusive = envBool("BOX_EXCLUSIVE", cfg.BoxExclusive)
	cfg.RequestTimeout = envDur("REQUEST_TIMEOUT", cfg.RequestTimeout)
	return nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("missing required env var: %s", "JWT_SECRET")
	}
	switch c.DBDriver {
	case "mysql":
		for key, v := range map[string]string{"DB_USER": c.DBUser, "DB_HOST": c.DBHost, "DB_PORT": c.DBPort, "DB_NAME": c.DBName} {
			if v == "" {
				return fmt.Errorf("missing required env var: %s", key)
			}
		}
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("missing required env var: %s", "DB_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("unsupported PASSWORD_HASHER %q", c.PasswordHasher)
	}
	if c.AccessTTLMin <= 0 || c.RefreshTTLDays <= 0 || c.SessionTTLHours <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}

// IsAdmin reports whether username is listed in ADMIN_USERNAMES.
func (c Config) IsAdmin(username string) bool {
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

// RefreshTTL returns the refresh token lifetime for a login.
func (c Config) RefreshTTL(remember bool) time.Duration {
	if remember {
		return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
