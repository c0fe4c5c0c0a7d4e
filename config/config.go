package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Log        LogConfig
	PassKit    PassKitConfig
	APNs       APNsConfig
	Redis      RedisConfig
	Push       PushConfig
	Settlement SettlementConfig
	RateLimit  RateLimitConfig
	Cloudinary CloudinaryConfig
}

type ServerConfig struct {
	Port          string
	Env           string
	PublicBaseURL string
	CORSOrigins   []string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string // postgres | mysql | sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
	CookieName   string
	CookieSecure bool
}

type LogConfig struct {
	Level       string
	Development bool
}

// PassKitConfig keeps the APPLE_PASS_* names the wallet tooling already uses.
type PassKitConfig struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	CertPath           string
	CertPassword       string
	WWDRCertPath       string
	WebServiceURL      string
	AuthTokenSecret    string
	AssetDir           string
}

type APNsConfig struct {
	KeyPath     string
	KeyID       string
	TeamID      string
	Topic       string
	Environment string
	BaseURL     string // overrides the environment host when set
	Timeout     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PushConfig struct {
	Workers   int
	QueueSize int
}

type SettlementConfig struct {
	LockTimeout time.Duration
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.public_base_url", "http://localhost:8000")
	v.SetDefault("server.cors_origins", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=loyalty password=loyalty dbname=loyalty port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", 12*time.Hour)
	v.SetDefault("jwt.issuer", "loyalty")
	v.SetDefault("jwt.cookie_name", "session")
	v.SetDefault("jwt.cookie_secure", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("apple_pass.type_identifier", "pass.com.example.placeholder")
	v.SetDefault("apple_pass.team_id", "TEAMID0000")
	v.SetDefault("apple_pass.cert_path", "")
	v.SetDefault("apple_pass.cert_password", "")
	v.SetDefault("apple_pass.wwdr_cert_path", "")
	v.SetDefault("apple_pass.web_service_url", "https://localhost/passkit")
	v.SetDefault("apple_pass.auth_token_secret", "changeme")
	v.SetDefault("apple_pass.asset_dir", "certs")

	v.SetDefault("apns.auth_key_path", "")
	v.SetDefault("apns.key_id", "")
	v.SetDefault("apns.team_id", "")
	v.SetDefault("apns.topic", "")
	v.SetDefault("apns.env", "production")
	v.SetDefault("apns.base_url", "")
	v.SetDefault("apns.timeout", 10*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("push.workers", 4)
	v.SetDefault("push.queue_size", 256)

	v.SetDefault("settlement.lock_timeout", 5*time.Second)

	v.SetDefault("rate_limit.per_second", 5.0)
	v.SetDefault("rate_limit.burst", 30)

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "loyalty/logos")
}

// Load reads config.yaml when present and lets environment variables
// (APPLE_PASS_TEAM_ID, DATABASE_DSN, ...) override every key.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	passTypeID := v.GetString("apple_pass.type_identifier")
	teamID := v.GetString("apple_pass.team_id")

	apnsTeam := v.GetString("apns.team_id")
	if apnsTeam == "" {
		apnsTeam = teamID
	}
	apnsTopic := v.GetString("apns.topic")
	if apnsTopic == "" {
		apnsTopic = passTypeID
	}

	return &Config{
		Server: ServerConfig{
			Port:          v.GetString("server.port"),
			Env:           v.GetString("server.env"),
			PublicBaseURL: strings.TrimRight(v.GetString("server.public_base_url"), "/"),
			CORSOrigins:   splitList(v.GetString("server.cors_origins")),
			ReadTimeout:   v.GetDuration("server.read_timeout"),
			WriteTimeout:  v.GetDuration("server.write_timeout"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("jwt.access_secret"),
			AccessExpiry: v.GetDuration("jwt.access_expiry"),
			Issuer:       v.GetString("jwt.issuer"),
			CookieName:   v.GetString("jwt.cookie_name"),
			CookieSecure: v.GetBool("jwt.cookie_secure"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		PassKit: PassKitConfig{
			PassTypeIdentifier: passTypeID,
			TeamIdentifier:     teamID,
			CertPath:           v.GetString("apple_pass.cert_path"),
			CertPassword:       v.GetString("apple_pass.cert_password"),
			WWDRCertPath:       v.GetString("apple_pass.wwdr_cert_path"),
			WebServiceURL:      v.GetString("apple_pass.web_service_url"),
			AuthTokenSecret:    v.GetString("apple_pass.auth_token_secret"),
			AssetDir:           v.GetString("apple_pass.asset_dir"),
		},
		APNs: APNsConfig{
			KeyPath:     v.GetString("apns.auth_key_path"),
			KeyID:       v.GetString("apns.key_id"),
			TeamID:      apnsTeam,
			Topic:       apnsTopic,
			Environment: strings.ToLower(v.GetString("apns.env")),
			BaseURL:     v.GetString("apns.base_url"),
			Timeout:     v.GetDuration("apns.timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Push: PushConfig{
			Workers:   v.GetInt("push.workers"),
			QueueSize: v.GetInt("push.queue_size"),
		},
		Settlement: SettlementConfig{
			LockTimeout: v.GetDuration("settlement.lock_timeout"),
		},
		RateLimit: RateLimitConfig{
			PerSecond: v.GetFloat64("rate_limit.per_second"),
			Burst:     v.GetInt("rate_limit.burst"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("cloudinary.cloud_name"),
			APIKey:    v.GetString("cloudinary.api_key"),
			APISecret: v.GetString("cloudinary.api_secret"),
			Folder:    v.GetString("cloudinary.folder"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
