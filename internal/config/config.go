package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

type Config struct {
	Env        string      `yaml:"env" env:"ENV" env-default:"production"`
	Transcode  Transcode   `yaml:"transcode"`
	Log        Log         `yaml:"log"`
	Redis      Redis       `yaml:"redis"`
	PGSQL      PQSQL       `yaml:"pgsql"`
	Source     SourceStore `yaml:"source_store"`
	HTTPServer HTTPServer  `yaml:"http_server"`
	JWTSecret  string      `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// Transcode holds the settings the orchestrator needs for every batch.
// The env names match the function's deployment environment.
type Transcode struct {
	DestinationBucket        string           `yaml:"destination_bucket" env:"DestinationBucket" env-required:"true" validate:"required"`
	Role                     string           `yaml:"role" env:"MediaConvertRole" env-required:"true" validate:"required,startswith=arn:"`
	Region                   string           `yaml:"region" env:"Region" env-required:"true" validate:"required,awsregion"`
	MaxConcurrentSubmissions int              `yaml:"max_concurrent_submissions" env:"MAX_CONCURRENT_SUBMISSIONS" env-default:"0" validate:"gte=0"`
	Renditions               transcode.Ladder `yaml:"renditions" env:"RENDITIONS" validate:"dive"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json" validate:"oneof=json text"`
}

// Redis backs the submission quota, the webhook rate limit and the
// duplicate-notification guard. All are disabled when Addr is empty.
type Redis struct {
	Addr           string        `yaml:"addr" env:"REDIS_ADDR"`
	Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	QuotaPerMinute int64         `yaml:"quota_per_minute" env:"SUBMISSION_QUOTA_PER_MINUTE" env-default:"0" validate:"gte=0"`
	DedupeTTL      time.Duration `yaml:"dedupe_ttl" env:"DEDUPE_TTL" env-default:"10m"`

	// NotificationsPerMinute limits webhook deliveries per sender; 0 disables
	NotificationsPerMinute int64 `yaml:"notifications_per_minute" env:"NOTIFICATIONS_PER_MINUTE" env-default:"0" validate:"gte=0"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

// PQSQL configures the submission ledger. Disabled when Host is empty.
type PQSQL struct {
	Host     string `yaml:"host" env:"PG_HOST"`
	Port     string `yaml:"port" env:"PG_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"PG_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PG_PASSWORD"`
	DBName   string `yaml:"dbname" env:"PG_DBNAME" env-default:"transcode"`
	SSLMode  string `yaml:"sslmode" env:"PG_SSLMODE" env-default:"disable"`
}

func (p PQSQL) Enabled() bool { return p.Host != "" }

// SourceStore configures the optional S3-compatible source probe.
type SourceStore struct {
	Endpoint        string `yaml:"endpoint" env:"SOURCE_STORE_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"SOURCE_STORE_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SOURCE_STORE_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" env:"SOURCE_STORE_USE_SSL" env-default:"true"`
}

func (s SourceStore) Enabled() bool { return s.Endpoint != "" }

type HTTPServer struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("awsregion", func(fl validator.FieldLevel) bool {
		return transcode.IsRegion(fl.Field().String())
	})
	return v
}

// Load reads configuration from the file at path, or from the environment
// alone when path is empty, and validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if len(cfg.Transcode.Renditions) == 0 {
		cfg.Transcode.Renditions = transcode.DefaultLadder()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every field and returns all violations at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("invalid config: %w", err)
	}

	var msg string
	for _, fe := range ve {
		msg += fe.Namespace() + ": " + fe.Tag() + "; "
	}
	return fmt.Errorf("invalid config: %s", msg)
}

// MustLoad resolves the config path from CONFIG_PATH or -config. Without
// either, configuration comes from the environment only.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatalf("config file does not exist at path: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	return cfg
}
