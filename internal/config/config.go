package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"` // sqlite file
	} `yaml:"database"`

	Storage struct {
		Driver string `yaml:"driver"` // minio | s3 | memory
		Minio  struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`
		S3 struct {
			Region        string `yaml:"region"`
			Bucket        string `yaml:"bucket"`
			Endpoint      string `yaml:"endpoint"`
			AccessKey     string `yaml:"accessKey"`
			SecretKey     string `yaml:"secretKey"`
			PathStyle     bool   `yaml:"pathStyle"`
			PublicBaseURL string `yaml:"publicBaseURL"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Inference struct {
		BaseURL         string        `yaml:"baseURL"`
		ScanByReference bool          `yaml:"scanByReference"`
		Timeout         time.Duration `yaml:"timeout"` // 0 = none
	} `yaml:"inference"`

	Session struct {
		TTL              time.Duration `yaml:"ttl"`
		ProgressInterval time.Duration `yaml:"progressInterval"`
		ProgressStep     int           `yaml:"progressStep"`
		ProgressCap      int           `yaml:"progressCap"`
	} `yaml:"session"`

	Samples struct {
		PurgeBlobs bool `yaml:"purgeBlobs"`
		Limit      int  `yaml:"limit"`
	} `yaml:"samples"`

	// Auth maps owner id to API key.
	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	Logging struct {
		File string `yaml:"file"`
		Env  string `yaml:"env"`
	} `yaml:"logging"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"openai"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subjectPrefix"`
	} `yaml:"nats"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		Endpoint    string `yaml:"endpoint"`
		ServiceName string `yaml:"serviceName"`
	} `yaml:"tracing"`
}

// Load baca file config.yaml, lalu .env dan environment variable NEUROSCAN_*.
// A missing file is fine; defaults and env still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("NEUROSCAN_PORT", c.Server.Port)
	if v := getEnv("NEUROSCAN_CORS_ORIGINS", ""); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	c.Database.Driver = getEnv("NEUROSCAN_DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("NEUROSCAN_DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("NEUROSCAN_DB_PORT", c.Database.Port)
	c.Database.User = getEnv("NEUROSCAN_DB_USER", c.Database.User)
	c.Database.Password = getEnv("NEUROSCAN_DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("NEUROSCAN_DB_NAME", c.Database.Name)
	c.Database.Path = getEnv("NEUROSCAN_DB_PATH", c.Database.Path)

	c.Storage.Driver = getEnv("NEUROSCAN_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Minio.AccessKey = getEnv("NEUROSCAN_MINIO_ACCESS_KEY", c.Storage.Minio.AccessKey)
	c.Storage.Minio.SecretKey = getEnv("NEUROSCAN_MINIO_SECRET_KEY", c.Storage.Minio.SecretKey)
	c.Storage.S3.AccessKey = getEnv("NEUROSCAN_S3_ACCESS_KEY", c.Storage.S3.AccessKey)
	c.Storage.S3.SecretKey = getEnv("NEUROSCAN_S3_SECRET_KEY", c.Storage.S3.SecretKey)

	c.Inference.BaseURL = getEnv("NEUROSCAN_INFERENCE_URL", c.Inference.BaseURL)
	c.OpenAI.APIKey = getEnv("NEUROSCAN_OPENAI_API_KEY", c.OpenAI.APIKey)
	c.NATS.URL = getEnv("NEUROSCAN_NATS_URL", c.NATS.URL)
	c.Logging.Env = getEnv("NEUROSCAN_ENV", c.Logging.Env)
	c.Tracing.Endpoint = getEnv("NEUROSCAN_OTLP_ENDPOINT", c.Tracing.Endpoint)

	// owner1:key1,owner2:key2
	if v := getEnv("NEUROSCAN_API_KEYS", ""); v != "" {
		if c.Auth.APIKeys == nil {
			c.Auth.APIKeys = map[string]string{}
		}
		for _, pair := range splitList(v) {
			owner, key, ok := strings.Cut(pair, ":")
			if ok && owner != "" && key != "" {
				c.Auth.APIKeys[strings.TrimSpace(owner)] = strings.TrimSpace(key)
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "data/neuroscan.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Samples.Limit == 0 {
		c.Samples.Limit = 20
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "development"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "neuroscan.notices"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "neuroscan"
	}
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q not supported", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.BucketName == "" {
			errs = append(errs, errors.New("storage.minio endpoint and bucketName required"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}
	if c.Inference.BaseURL == "" {
		errs = append(errs, errors.New("inference.baseURL required"))
	}
	if c.Session.ProgressCap >= 100 {
		errs = append(errs, errors.New("session.progressCap must be below 100"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProd() bool {
	return strings.EqualFold(c.Logging.Env, "production")
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
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
