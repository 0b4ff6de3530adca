package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database *dbConfig
	Storage  *storageConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"analysis_jobs"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type storageConfig struct {
	Endpoint  string `envconfig:"ANALYSIS_JOBS_S3_ENDPOINT" default:""`
	Bucket    string `envconfig:"ANALYSIS_JOBS_S3_BUCKET" default:"analysis-uploads"`
	AccessKey string `envconfig:"ANALYSIS_JOBS_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"ANALYSIS_JOBS_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"ANALYSIS_JOBS_S3_USE_SSL" default:"true"`
}

type svcConfig struct {
	Address            string        `envconfig:"ANALYSIS_JOBS_ADDRESS" default:":8080"`
	MetricsAddress     string        `envconfig:"ANALYSIS_JOBS_METRICS_ADDRESS" default:":8081"`
	LogLevel           string        `envconfig:"ANALYSIS_JOBS_LOG_LEVEL" default:"info"`
	LogFormat          string        `envconfig:"ANALYSIS_JOBS_LOG_FORMAT" default:"console"`
	JobTimeout         time.Duration `envconfig:"ANALYSIS_JOBS_JOB_TIMEOUT" default:"600s"`
	Workers            int           `envconfig:"ANALYSIS_JOBS_WORKERS" default:"4"`
	StaleCheckInterval time.Duration `envconfig:"ANALYSIS_JOBS_STALE_CHECK_INTERVAL" default:"1m"`
	MigrationFolder    string        `envconfig:"ANALYSIS_JOBS_MIGRATIONS_FOLDER" default:""`
	AllowedOrigins     []string      `envconfig:"ANALYSIS_JOBS_ALLOWED_ORIGINS" default:"*"`
	Auth               Auth
}

type Auth struct {
	AuthenticationType string `envconfig:"ANALYSIS_JOBS_AUTH" default:"none"`
	SharedSecret       string `envconfig:"ANALYSIS_JOBS_AUTH_SECRET" default:""`
	JwkCertURL         string `envconfig:"ANALYSIS_JOBS_JWK_URL" default:""`
}

// New reads the configuration from the environment. When envFile is set the
// variables it defines are loaded first, without overriding the environment.
func New(envFile ...string) (*Config, error) {
	if len(envFile) > 0 && envFile[0] != "" {
		if err := godotenv.Load(envFile...); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the settings a job invocation cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Storage.Endpoint == "" {
		missing = append(missing, "ANALYSIS_JOBS_S3_ENDPOINT")
	}
	if c.Storage.AccessKey == "" {
		missing = append(missing, "ANALYSIS_JOBS_S3_ACCESS_KEY")
	}
	if c.Storage.SecretKey == "" {
		missing = append(missing, "ANALYSIS_JOBS_S3_SECRET_KEY")
	}
	if c.Database.Type == "pgsql" && c.Database.Hostname == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Database.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Service.JobTimeout <= 0 {
		return errors.New("job timeout must be positive")
	}
	return nil
}

// UsesPostgres reports whether jobs are kept in PostgreSQL, which is also
// what the durable job queue requires.
func (c *Config) UsesPostgres() bool {
	return c.Database.Type == "pgsql"
}

func (c *Config) String() string {
	return fmt.Sprintf("db=%s://%s:%s/%s storage=%s/%s address=%s workers=%d timeout=%s",
		c.Database.Type, c.Database.Hostname, c.Database.Port, c.Database.Name,
		c.Storage.Endpoint, c.Storage.Bucket, c.Service.Address, c.Service.Workers, c.Service.JobTimeout)
}
