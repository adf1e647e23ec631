package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	SchoolAPI SchoolAPIConfig `yaml:"school_api"`
	Workers   WorkersConfig   `yaml:"workers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	BatchQueue string `yaml:"batch_queue"`
	DLQSuffix  string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`

	// ReportPrefix is where batch run reports are written.
	ReportPrefix string `yaml:"report_prefix"`
}

type SchoolAPIConfig struct {
	BaseURL      string          `yaml:"base_url"`
	AuthEndpoint string          `yaml:"auth_endpoint"`
	Username     string          `yaml:"username"`
	Password     string          `yaml:"password"`
	StaticToken  string          `yaml:"static_token"`
	SchoolID     string          `yaml:"school_id"`
	SchoolHeader string          `yaml:"school_header"`
	Timeout      time.Duration   `yaml:"timeout"`
	Endpoints    EndpointsConfig `yaml:"endpoints"`
}

type EndpointsConfig struct {
	CurrentSession     string `yaml:"current_session"`
	UpdateSession      string `yaml:"update_session"`
	UpdateSessionDates string `yaml:"update_session_dates"`
	NextSession        string `yaml:"next_session"`
	NextTerm           string `yaml:"next_term"`
	Results            string `yaml:"results"`
	StudentsByClass    string `yaml:"students_by_class"`
	StudentsBySubject  string `yaml:"students_by_subject"`
}

type WorkersConfig struct {
	Batch   BatchWorkerConfig   `yaml:"batch"`
	Refresh RefreshWorkerConfig `yaml:"refresh"`
}

type BatchWorkerConfig struct {
	Count int `yaml:"count"`

	// Concurrency bounds in-flight submissions within one batch; 1 is sequential.
	Concurrency int `yaml:"concurrency"`
}

type RefreshWorkerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "UTC"
	}
	if c.Redis.BatchQueue == "" {
		c.Redis.BatchQueue = "batch_uploads"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}
	if c.Storage.S3.ReportPrefix == "" {
		c.Storage.S3.ReportPrefix = "reports/"
	}
	if c.SchoolAPI.Timeout == 0 {
		c.SchoolAPI.Timeout = 30 * time.Second
	}
	if c.SchoolAPI.SchoolHeader == "" {
		c.SchoolAPI.SchoolHeader = "X-School-Id"
	}

	c.SchoolAPI.Endpoints = c.SchoolAPI.Endpoints.WithDefaults()

	if c.Workers.Batch.Count <= 0 {
		c.Workers.Batch.Count = 1
	}
	if c.Workers.Batch.Concurrency <= 0 {
		c.Workers.Batch.Concurrency = 1
	}
	if c.Workers.Refresh.Interval == 0 {
		c.Workers.Refresh.Interval = 5 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// WithDefaults fills every unset path with the school API's standard route.
func (e EndpointsConfig) WithDefaults() EndpointsConfig {
	setDefault(&e.CurrentSession, "/api/Session/current-session")
	setDefault(&e.UpdateSession, "/api/Session/update-session")
	setDefault(&e.UpdateSessionDates, "/api/Session/update-session-dates")
	setDefault(&e.NextSession, "/api/Session/next-session")
	setDefault(&e.NextTerm, "/api/Session/next-term")
	setDefault(&e.Results, "/api/Results")
	setDefault(&e.StudentsByClass, "/api/Student/by-class")
	setDefault(&e.StudentsBySubject, "/api/Student/by-subject")
	return e
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func (c *Config) Validate() error {
	if c.SchoolAPI.BaseURL == "" {
		return fmt.Errorf("school_api.base_url is required")
	}
	if c.SchoolAPI.SchoolID == "" {
		return fmt.Errorf("school_api.school_id is required")
	}
	if c.SchoolAPI.StaticToken == "" && (c.SchoolAPI.Username == "" || c.SchoolAPI.AuthEndpoint == "") {
		return fmt.Errorf("school_api needs either static_token or username with auth_endpoint")
	}
	return nil
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
// parseTime is always on; the journal scans DATETIME columns into time.Time.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
