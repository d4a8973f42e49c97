package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

const envPrefix = "ROLLCALL"

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	// IdentityKeyfile signs and verifies sessions with a local Ed25519 key.
	IdentityKeyfile = "keyfile"
	// IdentityJWKS only verifies sessions, against a remote key set.
	IdentityJWKS = "jwks"
)

type Config struct {
	Env                  string        // dev, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // default: 10s
	HousekeepingInterval time.Duration // default: 1h
	CORSAllowedOrigins   []string      // empty disables CORS

	StoreDriver   string // sqlite or mongo (default: sqlite)
	DatabaseFile  string // SQLite file (default: ./rollcall.db)
	MongoURI      string // required for the mongo driver
	MongoDatabase string // default: rollcall

	IdentityMode        string        // keyfile or jwks (default: keyfile)
	SigningKeyFile      string        // Ed25519 PEM for keyfile mode (default: ./rollcall.key)
	JWKSURL             string        // required for jwks mode
	JWKSRefreshInterval time.Duration // default: 10m
	Issuer              string        // expected "iss" (default: rollcall)
	Audience            []string      // expected "aud"; empty skips the check
	SessionTTL          time.Duration // lifetime of locally minted sessions (default: 12h)

	TokenTTL          time.Duration // default: 300s
	TokenMaxUses      int           // default: 1
	IssueCooldown     time.Duration // zero disables (default: 240s)
	RetainExhausted   bool          // deactivate instead of delete (default: false)
	TokenRetention    time.Duration // how long expired tokens are kept (default: 24h)
	RedeemMaxAttempts int           // default: 3

	// RateLimits come from ratelimit.<family>.{requests,window,burst}, for
	// example ROLLCALL_RATELIMIT_SCAN_BURST.
	RateLimits httpx.RateLimits
}

type rateLimitProfile struct {
	name string
	cfg  *httpx.RateLimitConfig
}

func rateLimitProfiles(l *httpx.RateLimits) []rateLimitProfile {
	return []rateLimitProfile{
		{"scan", &l.Scan},
		{"issue", &l.Issue},
		{"admin", &l.Admin},
		{"public", &l.Public},
	}
}

// NewViper returns a viper instance with every default set and ROLLCALL_*
// environment variables bound. Callers may bind flags on it before
// LoadConfig.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_grace_period", 10*time.Second)
	v.SetDefault("housekeeping_interval", time.Hour)
	v.SetDefault("cors_allowed_origins", "")

	v.SetDefault("store_driver", StoreSQLite)
	v.SetDefault("database_file", "rollcall.db")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "rollcall")

	v.SetDefault("identity_mode", IdentityKeyfile)
	v.SetDefault("signing_key_file", "rollcall.key")
	v.SetDefault("jwks_url", "")
	v.SetDefault("jwks_refresh_interval", 10*time.Minute)
	v.SetDefault("issuer", "rollcall")
	v.SetDefault("audience", "")
	v.SetDefault("session_ttl", 12*time.Hour)

	v.SetDefault("token_ttl", 300*time.Second)
	v.SetDefault("token_max_uses", 1)
	v.SetDefault("issue_cooldown", 240*time.Second)
	v.SetDefault("retain_exhausted", false)
	v.SetDefault("token_retention", 24*time.Hour)
	v.SetDefault("redeem_max_attempts", 3)

	limits := httpx.DefaultRateLimits()
	for _, p := range rateLimitProfiles(&limits) {
		v.SetDefault("ratelimit."+p.name+".requests", p.cfg.RequestsPerWindow)
		v.SetDefault("ratelimit."+p.name+".window", p.cfg.Window)
		v.SetDefault("ratelimit."+p.name+".burst", p.cfg.Burst)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads cfgFile when given, otherwise an optional rollcall.yaml
// in the working directory, and returns the validated configuration.
func LoadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("rollcall")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Env:                  v.GetString("env"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
		Port:                 v.GetInt("port"),
		ShutdownGracePeriod:  v.GetDuration("shutdown_grace_period"),
		HousekeepingInterval: v.GetDuration("housekeeping_interval"),
		CORSAllowedOrigins:   listValue(v, "cors_allowed_origins"),

		StoreDriver:   strings.ToLower(v.GetString("store_driver")),
		DatabaseFile:  v.GetString("database_file"),
		MongoURI:      v.GetString("mongo_uri"),
		MongoDatabase: v.GetString("mongo_database"),

		IdentityMode:        strings.ToLower(v.GetString("identity_mode")),
		SigningKeyFile:      v.GetString("signing_key_file"),
		JWKSURL:             v.GetString("jwks_url"),
		JWKSRefreshInterval: v.GetDuration("jwks_refresh_interval"),
		Issuer:              v.GetString("issuer"),
		Audience:            listValue(v, "audience"),
		SessionTTL:          v.GetDuration("session_ttl"),

		TokenTTL:          v.GetDuration("token_ttl"),
		TokenMaxUses:      v.GetInt("token_max_uses"),
		IssueCooldown:     v.GetDuration("issue_cooldown"),
		RetainExhausted:   v.GetBool("retain_exhausted"),
		TokenRetention:    v.GetDuration("token_retention"),
		RedeemMaxAttempts: v.GetInt("redeem_max_attempts"),
	}
	for _, p := range rateLimitProfiles(&cfg.RateLimits) {
		*p.cfg = httpx.RateLimitConfig{
			RequestsPerWindow: v.GetInt("ratelimit." + p.name + ".requests"),
			Window:            v.GetDuration("ratelimit." + p.name + ".window"),
			Burst:             v.GetInt("ratelimit." + p.name + ".burst"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations a default cannot fix.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("database_file is required for the sqlite store"))
		}
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo_uri is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store_driver %q", c.StoreDriver))
	}

	switch c.IdentityMode {
	case IdentityKeyfile:
		if c.SigningKeyFile == "" {
			errs = append(errs, errors.New("signing_key_file is required in keyfile mode"))
		}
	case IdentityJWKS:
		if c.JWKSURL == "" {
			errs = append(errs, errors.New("jwks_url is required in jwks mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown identity_mode %q", c.IdentityMode))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.TokenMaxUses < 1 {
		errs = append(errs, errors.New("token_max_uses must be at least 1"))
	}
	if c.IssueCooldown < 0 {
		errs = append(errs, errors.New("issue_cooldown must not be negative"))
	}
	for _, p := range rateLimitProfiles(&c.RateLimits) {
		if !p.cfg.Valid() {
			errs = append(errs, fmt.Errorf("ratelimit.%s needs positive requests, window and burst", p.name))
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// listValue accepts a YAML list or a comma separated string, which is how
// lists arrive from the environment.
func listValue(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
